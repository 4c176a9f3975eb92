package main

import (
	"io"

	"github.com/cheggaaa/pb/v3"

	"github.com/fyrsmithlabs/ragnchat/internal/repository"
)

const progressTemplate pb.ProgressBarTemplate = `{{with string . "prefix"}}{{.}} {{end}}{{counters . }} {{bar . }} {{percent . }} {{rtime . "ETA %s"}}{{with string . "suffix"}} {{.}}{{end}}`

// barProgress renders ingestion progress as a terminal bar on w.
type barProgress struct {
	bar      *pb.ProgressBar
	embedded int
}

func newBarProgress(w io.Writer, prefix string) *barProgress {
	bar := progressTemplate.New(0).
		SetWriter(w).
		Set("prefix", prefix)
	return &barProgress{bar: bar}
}

func (p *barProgress) Listed(total int) {
	p.bar.SetTotal(int64(total))
	p.bar.Start()
}

func (p *barProgress) FileDone(file repository.RemoteFile, embedded bool) {
	if embedded {
		p.embedded++
	}
	p.bar.Set("suffix", file.Path)
	p.bar.Increment()
}

func (p *barProgress) Finish() {
	if p.bar.IsStarted() {
		p.bar.Set("suffix", "")
		p.bar.Finish()
	}
}

var _ repository.Progress = (*barProgress)(nil)
