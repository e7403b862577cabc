// Copyright (c) 2026 Kevin Zang (kevinzang). All rights reserved.
// Use of this source code is governed by the MIT License.
//
// RmvbConv - RMVB 转 MP4 视频转换工具

package skills

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// Codec represents a codec with encoders and decoders
type Codec struct {
	Id       string
	Name     string
	Encoders []string
	Decoders []string
}

// Format represents a supported format
type Format struct {
	Id   string
	Name string
}

// Library represents a linked av library
type Library struct {
	Name     string
	Compiled string
	Linked   string
}

// Info is what `ffmpeg -version` reports
type Info struct {
	Version       string
	Compiler      string
	Configuration string
	Libraries     []Library
}

// Skills are the detected capabilities of FFmpeg
type Skills struct {
	FFmpeg Info
	Codecs struct {
		Audio    []Codec
		Video    []Codec
		Subtitle []Codec
	}
	Formats struct {
		Demuxers []Format
		Muxers   []Format
	}
}

// New returns the skills of the binary. Only a failing `-version` is an error;
// the codec and format listings are best effort.
func New(ctx context.Context, binary string) (Skills, error) {
	c := Skills{}

	ff, err := getVersion(ctx, binary)
	if ff.Version == "" || err != nil {
		if err != nil {
			return Skills{}, fmt.Errorf("can't parse ffmpeg version: %w", err)
		}
		return Skills{}, fmt.Errorf("can't parse ffmpeg version")
	}
	c.FFmpeg = ff

	c.Codecs = parseCodecs(output(ctx, binary, "-codecs"))
	c.Formats = parseFormats(output(ctx, binary, "-formats"))

	return c, nil
}

// HasEncoder reports whether any audio or video codec lists the encoder
func (s Skills) HasEncoder(name string) bool {
	for _, list := range [][]Codec{s.Codecs.Video, s.Codecs.Audio} {
		for _, c := range list {
			for _, e := range c.Encoders {
				if e == name {
					return true
				}
			}
		}
	}
	return false
}

// HasMuxer reports whether the output format is supported
func (s Skills) HasMuxer(id string) bool {
	for _, f := range s.Formats.Muxers {
		if f.Id == id {
			return true
		}
	}
	return false
}

func getVersion(ctx context.Context, binary string) (Info, error) {
	cmd := exec.CommandContext(ctx, binary, "-version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return Info{}, err
	}
	return parseVersion(out), nil
}

func output(ctx context.Context, binary, flag string) []byte {
	cmd := exec.CommandContext(ctx, binary, "-hide_banner", flag)
	stdout, _ := cmd.Output()
	return stdout
}

var (
	reVersion       = regexp.MustCompile(`^ffmpeg version (?:n)?([0-9]+\.[0-9]+(\.[0-9]+)?)`)
	reSnapshot      = regexp.MustCompile(`^ffmpeg version (\S+)`)
	reCompiler      = regexp.MustCompile(`(?m)^\s*built with (.*)$`)
	reConfiguration = regexp.MustCompile(`(?m)^\s*configuration: (.*)$`)
	reLibrary       = regexp.MustCompile(`(?m)^\s*(lib(?:[a-z]+))\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+) /\s+([0-9]+\.\s*[0-9]+\.\s*[0-9]+)`)
	reCodec         = regexp.MustCompile(`^\s([D.])([E.])([VAS]).{3} ([0-9A-Za-z_]+)\s+(.*?)(?:\(decoders:([^\)]+)\))?\s?(?:\(encoders:([^\)]+)\))?$`)
	reFormat        = regexp.MustCompile(`^\s([D ])([E ])[d ]? ?([0-9A-Za-z_,]+)\s+(.*?)$`)
)

func parseVersion(data []byte) Info {
	f := Info{}

	if m := reVersion.FindSubmatch(data); m != nil {
		f.Version = string(m[1])
		if len(m[2]) == 0 {
			f.Version += ".0"
		}
	} else if m := reSnapshot.FindSubmatch(data); m != nil {
		// git snapshot builds, e.g. "N-113061-g6b3a5e5e27"
		f.Version = string(m[1])
	}
	if m := reCompiler.FindSubmatch(data); m != nil {
		f.Compiler = string(m[1])
	}
	if m := reConfiguration.FindSubmatch(data); m != nil {
		f.Configuration = string(m[1])
	}
	for _, m := range reLibrary.FindAllSubmatch(data, -1) {
		f.Libraries = append(f.Libraries, Library{
			Name:     string(m[1]),
			Compiled: string(m[2]),
			Linked:   string(m[3]),
		})
	}
	return f
}

func parseCodecs(data []byte) struct {
	Audio    []Codec
	Video    []Codec
	Subtitle []Codec
} {
	codecs := struct {
		Audio    []Codec
		Video    []Codec
		Subtitle []Codec
	}{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reCodec.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		c := Codec{Id: m[4], Name: strings.TrimSpace(m[5])}
		if m[1] == "D" {
			if len(m[6]) == 0 {
				c.Decoders = []string{m[4]}
			} else {
				c.Decoders = strings.Fields(m[6])
			}
		}
		if m[2] == "E" {
			if len(m[7]) == 0 {
				c.Encoders = []string{m[4]}
			} else {
				c.Encoders = strings.Fields(m[7])
			}
		}
		switch m[3] {
		case "V":
			codecs.Video = append(codecs.Video, c)
		case "A":
			codecs.Audio = append(codecs.Audio, c)
		case "S":
			codecs.Subtitle = append(codecs.Subtitle, c)
		}
	}
	return codecs
}

func parseFormats(data []byte) struct {
	Demuxers []Format
	Muxers   []Format
} {
	f := struct {
		Demuxers []Format
		Muxers   []Format
	}{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		m := reFormat.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		for _, id := range strings.Split(m[3], ",") {
			format := Format{Id: id, Name: m[4]}
			if m[1] == "D" {
				f.Demuxers = append(f.Demuxers, format)
			}
			if m[2] == "E" {
				f.Muxers = append(f.Muxers, format)
			}
		}
	}
	return f
}
