package encoder

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Iron-Ham/screenreel/internal/config"
	"github.com/Iron-Ham/screenreel/internal/errors"
	"github.com/Iron-Ham/screenreel/internal/logging"
)

// quitExitCode is what ffmpeg returns after a 'q' on stdin.
const quitExitCode = 255

// Process is a running encoder.
type Process interface {
	// Pid returns the OS process ID, or 0 if unknown.
	Pid() int
	// Quit asks the encoder to finish the file and exit by writing 'q' to
	// its stdin and closing it.
	Quit() error
	// Kill terminates the encoder immediately.
	Kill() error
	// Done is closed once the process has exited.
	Done() <-chan struct{}
	// Wait blocks until the process exits and returns nil for a clean exit
	// (status 0 or 255) or an *errors.EncoderError otherwise.
	Wait() error
}

// Spawner starts encoder processes.
type Spawner interface {
	Spawn(ctx context.Context, job Job) (Process, error)
}

// Stop quits p and waits up to timeout for it to exit, killing it if it
// does not. It returns the process's Wait result, or an *errors.EncoderError
// matching errors.ErrTimeout when the process had to be killed. A failed
// Quit is not an error by itself: the process may already have exited.
func Stop(p Process, timeout time.Duration) error {
	_ = p.Quit()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.Done():
		return p.Wait()
	case <-timer.C:
	}

	_ = p.Kill()
	<-p.Done()

	killed := errors.NewEncoderError("encoder killed",
		errors.NewTimeoutError("waiting for encoder to exit", timeout))
	var waitErr *errors.EncoderError
	if errors.As(p.Wait(), &waitErr) {
		killed.WithExitCode(waitErr.ExitCode).WithStderrTail(waitErr.StderrTail)
	}
	return killed
}

// FFmpeg spawns ffmpeg recordings.
type FFmpeg struct {
	cfg    config.EncoderConfig
	goos   string
	logger *logging.Logger
}

// NewFFmpeg creates an FFmpeg spawner. A nil logger discards output.
func NewFFmpeg(cfg config.EncoderConfig, logger *logging.Logger) *FFmpeg {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &FFmpeg{
		cfg:    cfg,
		goos:   runtime.GOOS,
		logger: logger.WithComponent("encoder"),
	}
}

// Spawn starts ffmpeg for job. ctx only bounds the launch; the recording
// keeps running after ctx is cancelled.
func (f *FFmpeg) Spawn(ctx context.Context, job Job) (Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewEncoderError("spawn cancelled", errors.Join(errors.ErrEncoderSpawn, err))
	}
	if job.Display == "" {
		job.Display = os.Getenv("DISPLAY")
	}

	args := BuildArgs(f.goos, job, f.cfg)
	f.logger.Info("starting encoder",
		"path", f.cfg.FFmpegPath,
		"args", strings.Join(args, " "),
	)

	cmd := exec.Command(f.cfg.FFmpegPath, args...)
	hideConsoleWindow(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.NewEncoderError("failed to open encoder stdin", errors.Join(errors.ErrEncoderSpawn, err))
	}
	tail := NewTailBuffer(f.cfg.StderrTailBytes)
	cmd.Stderr = tail
	cmd.Stdout = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, errors.NewEncoderError("failed to start ffmpeg", errors.Join(errors.ErrEncoderSpawn, err))
	}

	p := &ffmpegProcess{
		cmd:    cmd,
		stdin:  stdin,
		tail:   tail,
		done:   make(chan struct{}),
		logger: f.logger.WithRecording(job.OutputPath),
	}
	go p.reap()
	return p, nil
}

type ffmpegProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	tail   *TailBuffer
	logger *logging.Logger

	quitOnce sync.Once
	quitErr  error

	done chan struct{}
	err  error // set before done is closed
}

func (p *ffmpegProcess) reap() {
	werr := p.cmd.Wait()
	p.err = classifyExit(werr, p.tail.String())
	if p.err != nil {
		p.logger.Warn("encoder exited with error", "error", werr)
	} else {
		p.logger.Info("encoder exited")
	}
	close(p.done)
}

// classifyExit maps the result of cmd.Wait to nil or an EncoderError.
func classifyExit(werr error, tail string) error {
	if werr == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(werr, &exitErr) {
		code := exitErr.ExitCode()
		if code == quitExitCode {
			return nil
		}
		return errors.NewEncoderError("ffmpeg exited", errors.ErrEncoderExit).
			WithExitCode(code).
			WithStderrTail(tail)
	}
	return errors.NewEncoderError("failed to wait for ffmpeg", errors.Join(errors.ErrEncoderExit, werr)).
		WithStderrTail(tail)
}

func (p *ffmpegProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *ffmpegProcess) Quit() error {
	p.quitOnce.Do(func() {
		_, err := io.WriteString(p.stdin, "q")
		if cerr := p.stdin.Close(); err == nil {
			err = cerr
		}
		p.quitErr = err
	})
	return p.quitErr
}

func (p *ffmpegProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *ffmpegProcess) Done() <-chan struct{} {
	return p.done
}

func (p *ffmpegProcess) Wait() error {
	<-p.done
	return p.err
}
