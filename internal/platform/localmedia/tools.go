package localmedia

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/yungbote/manike-backend/internal/pkg/ctxutil"
	"github.com/yungbote/manike-backend/internal/platform/logger"
)

// Tools wraps the ffmpeg binary. Calls block for the length of an encode and belong in
// workers or compile paths, not request handlers.
type Tools interface {
	AssertReady(ctx context.Context) error
	// ConcatClips stitches inputs (local paths or http(s) URLs) in order into outPath.
	ConcatClips(ctx context.Context, inputs []string, outPath string) (string, error)
	// TempPath reserves a unique path under the work root. cleanup removes the file.
	TempPath(suffix string) (path string, cleanup func(), err error)
}

type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

type tools struct {
	log            *logger.Logger
	ffmpegPath     string
	workRoot       string
	defaultTimeout time.Duration
	run            runFunc
}

type Options struct {
	FFmpegPath string
	WorkRoot   string
	Timeout    time.Duration
}

func New(log *logger.Logger, opts Options) Tools {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.WorkRoot == "" {
		opts.WorkRoot = filepath.Join(os.TempDir(), "manike-media")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     opts.FFmpegPath,
		workRoot:       opts.WorkRoot,
		defaultTimeout: opts.Timeout,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	if _, err := exec.LookPath(m.ffmpegPath); err != nil {
		return fmt.Errorf("missing required binary %q in PATH: %w", m.ffmpegPath, err)
	}
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return fmt.Errorf("create workRoot: %w", err)
	}
	return nil
}

func (m *tools) TempPath(suffix string) (string, func(), error) {
	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("mkdir workRoot: %w", err)
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", func() {}, err
	}
	if suffix != "" && !strings.HasPrefix(suffix, ".") {
		suffix = "." + suffix
	}
	path := filepath.Join(m.workRoot, hex.EncodeToString(b[:])+suffix)
	return path, func() { _ = os.Remove(path) }, nil
}

func (m *tools) ConcatClips(ctx context.Context, inputs []string, outPath string) (string, error) {
	ctx = ctxutil.Default(ctx)
	if len(inputs) == 0 {
		return "", fmt.Errorf("no clips to concatenate")
	}
	if outPath == "" {
		return "", fmt.Errorf("outPath required")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir outPath dir: %w", err)
	}

	listPath, cleanupList, err := m.TempPath(".txt")
	if err != nil {
		return "", err
	}
	defer cleanupList()
	if err := os.WriteFile(listPath, []byte(concatList(inputs)), 0o644); err != nil {
		return "", fmt.Errorf("write concat list: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	out, err := m.run(ctx, m.ffmpegPath, concatArgs(listPath, outPath, false)...)
	if err != nil {
		// Stream copy fails when clips differ in codec or resolution.
		m.log.Warn("ffmpeg stream copy failed; re-encoding", "clips", len(inputs), "error", err.Error())
		out, err = m.run(ctx, m.ffmpegPath, concatArgs(listPath, outPath, true)...)
		if err != nil {
			return "", fmt.Errorf("ffmpeg concat failed: %w; out=%s", err, string(out))
		}
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("concat output missing at %s", outPath)
	}
	return outPath, nil
}

func concatList(inputs []string) string {
	var b strings.Builder
	for _, in := range inputs {
		// concat demuxer quoting: close the quote, emit an escaped quote, reopen.
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(in, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func concatArgs(listPath, outPath string, reencode bool) []string {
	args := []string{
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-protocol_whitelist", "file,http,https,tcp,tls,crypto",
		"-i", listPath,
	}
	if reencode {
		args = append(args,
			"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
			"-c:a", "aac", "-b:a", "128k",
			"-movflags", "+faststart",
		)
	} else {
		args = append(args, "-c", "copy", "-movflags", "+faststart")
	}
	return append(args, outPath)
}
