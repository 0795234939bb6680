package main

import (
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// barProgress draws one mpb bar per harness stage.
type barProgress struct {
	p    *mpb.Progress
	bar  *mpb.Bar
	last time.Time
}

func newBarProgress() *barProgress {
	return &barProgress{}
}

func (b *barProgress) Start(stage string, total int) {
	b.Done()
	b.p = mpb.New(mpb.WithWidth(64))
	b.bar = b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(stage+": "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)
	b.last = time.Now()
}

func (b *barProgress) Increment() {
	if b.bar == nil {
		return
	}
	b.bar.EwmaIncrement(time.Since(b.last))
	b.last = time.Now()
}

// Done completes the current bar, even when the stage stopped early.
func (b *barProgress) Done() {
	if b.p == nil {
		return
	}
	b.bar.SetTotal(-1, true)
	b.p.Wait()
	b.p, b.bar = nil, nil
}
