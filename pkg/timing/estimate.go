package timing

// Heuristic constants for output-size estimation. The estimate is advisory;
// it only has to preserve ordering in quality, frame count, and resolution.
const (
	baseBytesPerPixel    = 0.15
	qualityBytesPerPixel = 0.85
	ditheringMultiplier  = 1.15
	compressionRatio     = 0.45

	fileOverheadBytes     = 800
	perFrameOverheadBytes = 24
)

// EstimateOutputSize returns an advisory byte estimate for an export.
// quality is the 0.1-1.0 export quality, skip the frame-skip factor, and
// presetFactor the encoder preset's size multiplier (1.0 when unknown).
func EstimateOutputSize(frameCount, width, height int, quality float64, skip int, dithering bool, presetFactor float64) int64 {
	if frameCount <= 0 || width <= 0 || height <= 0 {
		return 0
	}
	if skip < 1 {
		skip = 1
	}
	if presetFactor <= 0 {
		presetFactor = 1.0
	}

	effectiveFrames := (frameCount + skip - 1) / skip

	bytesPerPixel := baseBytesPerPixel + qualityBytesPerPixel*quality
	raw := float64(effectiveFrames) * float64(width) * float64(height) * bytesPerPixel

	multiplier := 1.0
	if dithering {
		multiplier = ditheringMultiplier
	}

	size := raw*multiplier*compressionRatio*presetFactor + float64(headerOverhead(effectiveFrames))
	return int64(size)
}

func headerOverhead(frameCount int) int {
	return fileOverheadBytes + frameCount*perFrameOverheadBytes
}
