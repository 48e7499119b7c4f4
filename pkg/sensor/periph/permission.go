package periph

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// Permission grants sensor access when the process can open every device
// node read-write. Missing nodes are ignored; they surface as start failures.
type Permission struct {
	Paths []string
}

func (p Permission) Query(ctx context.Context) (bool, error) {
	for _, path := range p.Paths {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		switch {
		case err == nil:
			f.Close()
		case errors.Is(err, fs.ErrPermission):
			return false, nil
		case errors.Is(err, fs.ErrNotExist):
		default:
			return false, err
		}
	}
	return true, nil
}
