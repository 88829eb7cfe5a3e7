package core

import (
	"context"
	"fmt"
	"strings"
)

// Status of the working copy holding path: pending changes and identity
func (d *Datalink) Status(ctx context.Context, path string) Result {
	wc, err := d.open(ctx, path)
	if err != nil {
		return failure(err)
	}
	changes, err := wc.vcs.Status(ctx)
	if err != nil {
		return failure(err)
	}
	id, err := wc.cfg.Repository(ctx)
	if err != nil {
		return failure(err)
	}

	var b strings.Builder
	for _, c := range changes {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "repository id: %s\n", orNone(id.RepositoryID))
	fmt.Fprintf(&b, "external dms id: %s\n", orNone(id.ExternalDMSID))
	fmt.Fprintf(&b, "data set id: %s", orNone(id.DataSetID))
	if wc.settings.AnalysisParent != "" {
		fmt.Fprintf(&b, "\nanalysis of: %s", wc.settings.AnalysisParent)
	}
	return Result{Code: CodeOK, Output: b.String(), DataSetID: id.DataSetID, Path: wc.root}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
