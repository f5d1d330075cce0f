package utils

import (
	"image"

	"github.com/nfnt/resize"
)

func thumbnail(size uint, img image.Image) image.Image {
	if size == 0 {
		return img
	}
	return resize.Thumbnail(size, size, img, resize.Lanczos3)
}
