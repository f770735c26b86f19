package web

import (
	"embed"
	"io/fs"
)

//go:embed assets/*
var Files embed.FS

// Assets is the embedded asset directory, rooted so that it can be served
// under /static/.
func Assets() fs.FS {
	sub, err := fs.Sub(Files, "assets")
	if err != nil {
		// the directive above guarantees the directory exists
		panic(err)
	}
	return sub
}
