package local

import (
	"github.com/dgraph-io/badger/v3"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog/status"
	"github.com/oneconcern/datalink/pkg/errors"
)

func key(prefix []byte, id string) []byte {
	k := make([]byte, 0, len(prefix)+len(id))
	return append(append(k, prefix...), id...)
}

func getJSON(txn *badger.Txn, k []byte, target interface{}) (bool, error) {
	item, err := txn.Get(k)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	err = item.Value(func(v []byte) error {
		return jsoniter.Unmarshal(v, target)
	})
	return err == nil, err
}

func setJSON(txn *badger.Txn, k []byte, value interface{}) error {
	b, err := jsoniter.Marshal(value)
	if err != nil {
		return err
	}
	return txn.Set(k, b)
}

// rewriteError keeps catalog errors, and reports anything else from badger as a transport failure
func rewriteError(err error) error {
	if err == nil {
		return nil
	}
	if err == badger.ErrKeyNotFound {
		return status.ErrDataSetNotFound
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return err
	}
	return status.ErrTransport.Wrap(err)
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.Warnf(format, args...)
}
