package handler_test

import (
	"fmt"

	"github.com/kiranshivaraju/pixelflow/internal/upload"
)

func namedFiles(n int) []upload.File {
	out := make([]upload.File, n)
	for i := range out {
		out[i] = upload.File{Name: fmt.Sprintf("shot_%d.png", i), Size: 512}
	}
	return out
}
