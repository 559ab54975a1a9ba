package gitrepo

import (
	"context"
	"fmt"

	"github.com/syou6162/git-line-patch/internal/operation"
)

// WholeFileArgs returns the git arguments that perform op on the whole file
func WholeFileArgs(op operation.PatchOperation, path string) ([]string, error) {
	switch op {
	case operation.OperationStage:
		return []string{"add", "--", path}, nil
	case operation.OperationUnstage, operation.OperationResetIndex:
		return []string{"reset", "-q", "--", path}, nil
	case operation.OperationResetWorkTree:
		return []string{"checkout", "--", path}, nil
	default:
		return nil, fmt.Errorf("%s has no whole-file equivalent", op)
	}
}

// WholeFile performs op on the whole file
func (r *Repository) WholeFile(ctx context.Context, op operation.PatchOperation, path string) (string, error) {
	args, err := WholeFileArgs(op, path)
	if err != nil {
		return "", err
	}
	r.logger.Info("%s %s on the whole file", op, path)
	return r.run(ctx, args...)
}
