// Package formats picks the presentable encodings out of a media item's catalog.
package formats

import (
	"mediadl/internal/domain/consts"
	"mediadl/internal/models"
)

// Filter returns the options offered to the user: one video-only mp4 entry per
// distinct quality label (first occurrence wins), followed by the best
// audio-only encoding tagged as an mp3.
func Filter(catalog []models.Format) []models.Format {
	if len(catalog) == 0 {
		return []models.Format{}
	}

	seen := make(map[string]struct{}, len(catalog))
	out := make([]models.Format, 0, len(catalog)+1)

	for _, f := range catalog {
		if !f.HasVideo || f.HasAudio || f.Container != consts.ExtMP4 {
			continue
		}
		if _, dup := seen[f.QualityLabel]; dup {
			continue
		}
		seen[f.QualityLabel] = struct{}{}

		f.Extension = f.Container
		out = append(out, f)
	}

	if audio, ok := BestAudio(catalog); ok {
		audio.Extension = consts.ExtMP3
		out = append(out, audio)
	}
	return out
}

// BestAudio returns the highest ranked audio-only encoding.
func BestAudio(catalog []models.Format) (models.Format, bool) {
	var (
		best  models.Format
		found bool
	)
	for _, f := range catalog {
		if f.HasVideo || !f.HasAudio {
			continue
		}
		if !found || betterAudio(f, best) {
			best = f
			found = true
		}
	}
	return best, found
}

// betterAudio ranks by quality tier, then audio bitrate, then overall bitrate.
// Ties keep the earlier candidate.
func betterAudio(a, b models.Format) bool {
	ra, rb := consts.AudioQualityRank[a.AudioQuality], consts.AudioQualityRank[b.AudioQuality]
	if ra != rb {
		return ra > rb
	}
	if a.AudioBitrate != b.AudioBitrate {
		return a.AudioBitrate > b.AudioBitrate
	}
	return a.Bitrate > b.Bitrate
}

// Lookup finds the option with the given quality label. The label "audio"
// (or an empty label on an audio-only list) selects the audio option.
func Lookup(options []models.Format, quality string) (models.Format, bool) {
	for _, f := range options {
		if quality == "audio" && f.AudioOnly() {
			return f, true
		}
		if f.HasVideo && f.QualityLabel == quality {
			return f, true
		}
	}
	return models.Format{}, false
}

// Request builds a queue request for the chosen option, pairing a video
// selection with the catalog's best audio track.
func Request(id, title string, chosen models.Format, catalog []models.Format, splitTracks bool) models.Request {
	req := models.Request{
		ID:     id,
		Title:  title,
		Format: chosen,
	}
	if chosen.AudioOnly() {
		req.SplitTracks = splitTracks
		return req
	}
	if audio, ok := BestAudio(catalog); ok {
		req.Companion = &audio
	}
	return req
}
