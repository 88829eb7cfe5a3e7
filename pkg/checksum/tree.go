package checksum

import (
	"context"
	"encoding/hex"
	"hash/crc32"
	"io"
	"sync"

	blake2b "github.com/minio/blake2b-simd"

	"github.com/oneconcern/datalink/pkg/checksum/status"
)

const innerHashSize = 64

type leafInput struct {
	part      int
	buffer    []byte
	lastChunk bool
}

type leafOutput struct {
	part   int
	digest []byte
	err    error
}

// treeProvider computes a BLAKE2B tree hash: leaves are hashed concurrently then combined in a root node
type treeProvider struct {
	*settings
}

func (p *treeProvider) Checksum(ctx context.Context, path string) (Result, error) {
	fi, err := stat(p.fs, path)
	if err != nil {
		return Result{}, err
	}
	f, err := p.fs.Open(path)
	if err != nil {
		return Result{}, status.ErrReadFile.Wrap(err)
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	leaves := make(chan leafInput)
	results := make(chan leafOutput)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.hashLeaves(leaves, results)
		}()
	}

	crc := crc32.NewIEEE()
	readErr := make(chan error, 1)
	go func() {
		defer close(leaves)
		for part, total := 0, int64(0); ; part++ {
			buffer := make([]byte, p.leafSize)
			n, e := io.ReadFull(f, buffer)
			if e != nil && e != io.ErrUnexpectedEOF && e != io.EOF {
				readErr <- e
				return
			}
			if n == 0 {
				readErr <- nil
				return
			}
			buffer = buffer[:n]
			_, _ = crc.Write(buffer)
			total += int64(n)
			last := total >= fi.Size()

			select {
			case leaves <- leafInput{part: part, buffer: buffer, lastChunk: last}:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
			if last {
				readErr <- nil
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	digests := make(map[int][]byte)
	var leafErr error
	for r := range results {
		if r.err != nil && leafErr == nil {
			leafErr = r.err
			cancel()
		}
		digests[r.part] = r.digest
	}
	if err := <-readErr; err != nil {
		return Result{}, status.ErrReadFile.Wrap(err)
	}
	if leafErr != nil {
		return Result{}, status.ErrReadFile.Wrap(leafErr)
	}

	// concatenate leaf digests in order
	b := make([]byte, len(digests)*innerHashSize)
	for index, val := range digests {
		offset := innerHashSize * index
		copy(b[offset:offset+innerHashSize], val)
	}

	root, err := blake2b.New(&blake2b.Config{
		Size: blake2b.Size,
		Tree: &blake2b.Tree{
			Fanout:        0,
			MaxDepth:      2,
			LeafSize:      p.leafSize,
			NodeOffset:    0,
			NodeDepth:     1,
			InnerHashSize: innerHashSize,
			IsLastNode:    true,
		},
	})
	if err != nil {
		return Result{}, err
	}
	_, _ = root.Write(b)

	return Result{
		Checksum:     hex.EncodeToString(root.Sum(nil)),
		ChecksumType: BLAKE2B,
		FileLength:   fi.Size(),
		CRC32:        crc.Sum32(),
	}, nil
}

func (p *treeProvider) hashLeaves(rx <-chan leafInput, tx chan<- leafOutput) {
	for c := range rx {
		leaf, err := blake2b.New(&blake2b.Config{
			Size: blake2b.Size,
			Tree: &blake2b.Tree{
				Fanout:        0,
				MaxDepth:      2,
				LeafSize:      p.leafSize,
				NodeOffset:    uint64(c.part),
				NodeDepth:     0,
				InnerHashSize: innerHashSize,
				IsLastNode:    c.lastChunk,
			},
		})
		if err != nil {
			tx <- leafOutput{part: c.part, err: err}
			continue
		}
		_, _ = leaf.Write(c.buffer)
		tx <- leafOutput{part: c.part, digest: leaf.Sum(nil)}
	}
}
