package main

import (
	"context"
	"fmt"

	"github.com/a-h/competitionmonitor"
)

type VersionCommand struct {
}

func (c VersionCommand) Run(ctx context.Context) (err error) {
	fmt.Println(competitionmonitor.Version)
	return nil
}
