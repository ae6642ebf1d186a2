package main

import (
	"context"

	"github.com/trezcool/educa/core"
	"github.com/trezcool/educa/core/course"
)

func (cli *commandLine) addSubject(title, slug string) error {
	ctx := context.Background()
	sub := course.Subject{
		Title: core.CleanString(title),
		Slug:  core.CleanString(slug, true /* lower */),
	}
	_, err := cli.crsRepo.CreateSubject(ctx, sub)
	return err
}
