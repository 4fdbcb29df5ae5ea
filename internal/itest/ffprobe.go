//go:build integration

package itest

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
	} `json:"streams"`
}

func probe(path string) (probeResult, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration:stream=codec_type,codec_name",
		"-of", "json",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return probeResult{}, fmt.Errorf("ffprobe %s: %w\n%s", path, err, string(b))
	}
	var r probeResult
	if err := json.Unmarshal(b, &r); err != nil {
		return probeResult{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	return r, nil
}

func probeDurationSeconds(path string) (float64, error) {
	r, err := probe(path)
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(r.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", r.Format.Duration, err)
	}
	return sec, nil
}

// probeCodecs maps stream type ("video", "audio") to codec name.
func probeCodecs(path string) (map[string]string, error) {
	r, err := probe(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(r.Streams))
	for _, s := range r.Streams {
		out[s.CodecType] = s.CodecName
	}
	return out, nil
}
