package matroska

import (
	"bytes"
	"fmt"

	"github.com/cockroachdb/errors"
)

const (
	CodecSubtitleVobSub = "S_VOBSUB"
	CodecSubtitleUtf8   = "S_TEXT/UTF8"
	CodecSubtitleSsa    = "S_TEXT/SSA"
	CodecSubtitleAss    = "S_TEXT/ASS"
	CodecSubtitleSsaOld = "S_SSA"
	CodecSubtitleAssOld = "S_ASS"
)

// videoFormat works out the presented size of a video track. Some muxers store
// the display size as a ratio rather than pixels, so when the pixel size is
// larger on either axis the display size is scaled up to cover it.
func videoFormat(video VideoEntry) (VideoFormat, error) {
	format := VideoFormat{PixelHeight: video.PixelHeight, PixelWidth: video.PixelWidth}

	displayWidth := float64(video.DisplayWidth)
	displayHeight := float64(video.DisplayHeight)
	pixelWidth := float64(video.PixelWidth)
	pixelHeight := float64(video.PixelHeight)

	switch {
	case video.DisplayWidth > 0 && video.DisplayHeight > 0:
		horizontalRatio := pixelWidth / displayWidth
		verticalRatio := pixelHeight / displayHeight

		switch {
		case verticalRatio > horizontalRatio && verticalRatio > 1:
			format.Width = displayWidth * pixelHeight / displayHeight
			format.Height = pixelHeight
		case horizontalRatio > 1:
			format.Width = pixelWidth
			format.Height = displayHeight * pixelWidth / displayWidth
		default:
			format.Width = displayWidth
			format.Height = displayHeight
		}

		aspect := reducePixelAspect(PixelAspectRatio{
			HSpacing: video.DisplayWidth * video.PixelHeight,
			VSpacing: video.DisplayHeight * video.PixelWidth,
		})
		if !aspect.IsSquare() {
			format.PixelAspect = &aspect
		}
	case video.PixelWidth > 0 && video.PixelHeight > 0:
		format.Width = pixelWidth
		format.Height = pixelHeight
	default:
		return format, errors.Wrap(ErrTrackRejected, "video has unknown dimensions")
	}

	return format, nil
}

func reducePixelAspect(aspect PixelAspectRatio) PixelAspectRatio {
	if aspect.HSpacing == 0 || aspect.VSpacing == 0 || aspect.IsSquare() {
		return PixelAspectRatio{HSpacing: 1, VSpacing: 1}
	}

	a, b := aspect.HSpacing, aspect.VSpacing
	for b != 0 {
		a, b = b, a%b
	}

	return PixelAspectRatio{HSpacing: aspect.HSpacing / a, VSpacing: aspect.VSpacing / a}
}

func subtitleKind(codecId string) (SubtitleKind, error) {
	switch codecId {
	case CodecSubtitleVobSub:
		return SubtitleBitmap, nil
	case CodecSubtitleUtf8:
		return SubtitleText, nil
	case CodecSubtitleSsa, CodecSubtitleAss, CodecSubtitleSsaOld, CodecSubtitleAssOld:
		return SubtitleStyled, nil
	}

	return SubtitleText, errors.Wrapf(ErrTrackRejected, "unsupported subtitle codec %q", codecId)
}

// bitmapSubtitleSize finds the "size: WxH" line of a VobSub idx header.
func bitmapSubtitleSize(codecPrivate []byte) (int, int, error) {
	location := bytes.Index(codecPrivate, []byte("size:"))
	if location < 0 {
		return 0, 0, errors.Wrap(ErrTrackRejected, "bitmap subtitle private data has no size")
	}

	var width, height int

	_, scanErr := fmt.Sscanf(string(codecPrivate[location:]), "size: %dx%d", &width, &height)
	if scanErr != nil || width <= 0 || height <= 0 {
		return 0, 0, errors.Wrapf(ErrTrackRejected, "bitmap subtitle size does not parse: %v", scanErr)
	}

	return width, height, nil
}
