package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

var (
	ansiRe    = regexp.MustCompile(`\x1b(?:[@-Z\\-_]|\[[0-?]*[ -/]*[@-~])`)
	percentRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)%`)
	speedRe   = regexp.MustCompile(`at\s+(\S+)`)
	etaRe     = regexp.MustCompile(`ETA\s+(\S+)`)
)

// YTDLP drives the yt-dlp binary as a subprocess.
type YTDLP struct {
	// Binary is the executable path, "yt-dlp" by default.
	Binary string
}

// NewYTDLP returns a gateway backed by the given yt-dlp binary path.
func NewYTDLP(binary string) *YTDLP {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLP{Binary: binary}
}

// Probe runs a metadata-only extraction (-J) and decodes the result.
func (y *YTDLP) Probe(ctx context.Context, url string, opts Options) (*Metadata, error) {
	args := append([]string{"-J", "--skip-download"}, y.commonArgs(opts)...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, y.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s", extractorError(err, &stderr))
	}

	var meta Metadata
	if err := json.Unmarshal(stdout.Bytes(), &meta); err != nil {
		return nil, fmt.Errorf("decode extractor output: %w", err)
	}
	return &meta, nil
}

// Fetch materializes the selected variant to opts.OutputTemplate, invoking
// onProgress for each progress line yt-dlp prints. Cancelling ctx kills the
// subprocess.
func (y *YTDLP) Fetch(ctx context.Context, url string, opts Options, onProgress func(Progress)) error {
	args := append([]string{"--newline"}, y.commonArgs(opts)...)
	if opts.FormatSelector != "" {
		args = append(args, "-f", opts.FormatSelector)
	}
	if opts.OutputTemplate != "" {
		args = append(args, "-o", opts.OutputTemplate)
	}
	if opts.MergeOutputFormat != "" {
		args = append(args, "--merge-output-format", opts.MergeOutputFormat)
	}
	args = append(args, url)

	cmd := exec.CommandContext(ctx, y.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start extractor: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if p, ok := ParseProgressLine(scanner.Text()); ok && onProgress != nil {
			onProgress(p)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s", extractorError(err, &stderr))
	}
	return nil
}

// commonArgs maps Options to yt-dlp flags shared by Probe and Fetch.
func (y *YTDLP) commonArgs(opts Options) []string {
	args := []string{"--no-warnings", "--no-playlist", "--no-check-certificates", "--no-cache-dir"}
	for k, v := range opts.HTTPHeaders {
		args = append(args, "--add-header", k+":"+v)
	}
	if opts.CookieFile != "" {
		args = append(args, "--cookies", opts.CookieFile)
	}
	if opts.GeoBypass {
		args = append(args, "--geo-bypass")
		if opts.GeoBypassCountry != "" {
			args = append(args, "--geo-bypass-country", opts.GeoBypassCountry)
		}
	}
	if len(opts.PlayerClients) > 0 {
		args = append(args, "--extractor-args", "youtube:player_client="+strings.Join(opts.PlayerClients, ","))
	}
	for _, ea := range opts.ExtractorArgs {
		args = append(args, "--extractor-args", ea)
	}
	if opts.ConcurrentFragments > 0 {
		args = append(args, "-N", strconv.Itoa(opts.ConcurrentFragments))
	}
	return args
}

// ParseProgressLine decodes one "[download]  42.3% of ~10MiB at 1.2MiB/s ETA 00:42"
// line. Returns false for lines that carry no percentage.
func ParseProgressLine(line string) (Progress, bool) {
	line = StripANSI(line)
	if !strings.Contains(line, "[download]") {
		return Progress{}, false
	}
	m := percentRe.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}

	p := Progress{Percent: pct}
	if sm := speedRe.FindStringSubmatch(line); sm != nil {
		p.Speed = sm[1]
	}
	if em := etaRe.FindStringSubmatch(line); em != nil {
		p.ETA = em[1]
	}
	return p, true
}

// StripANSI removes terminal control sequences from extractor output.
func StripANSI(s string) string {
	return strings.TrimSpace(ansiRe.ReplaceAllString(s, ""))
}

// extractorError prefers the subprocess stderr over the exec error, which is
// usually just "exit status 1".
func extractorError(err error, stderr *bytes.Buffer) string {
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		// Last line tends to hold the actual extractor failure.
		lines := strings.Split(msg, "\n")
		return StripANSI(lines[len(lines)-1])
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return strings.TrimSpace(string(exitErr.Stderr))
	}
	return err.Error()
}
