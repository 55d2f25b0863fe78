package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/panda-cat/netdev-dep/pkg/version"
)

type versionCmd struct {
}

func (cmd *versionCmd) Run(ctx context.Context) error {
	fmt.Printf("connexec %s %s/%s\n", version.Version, runtime.GOOS, runtime.GOARCH)
	return nil
}
