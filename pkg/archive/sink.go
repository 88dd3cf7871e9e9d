package archive

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	errs "artcollector/pkg/errors"
	"artcollector/pkg/logger"

	gobreaker "github.com/sony/gobreaker/v2"
)

// Sink is the remote side of the pipeline
type Sink interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	// FolderSize returns the bytes stored under remotePath, zero when it does not exist
	FolderSize(ctx context.Context, remotePath string) (int64, error)
	// Put uploads localPath to remotePath, creating missing folders
	Put(ctx context.Context, localPath, remotePath string) error
}

// MEGAcmd exit codes
const (
	exitAlreadyLoggedIn = 54
	exitNotFound        = 53
)

// Credentials for the MEGA account
type Credentials struct {
	Email    string
	Password string
	// AuthCode is the current two-factor code, optional
	AuthCode string
}

// Options configures a MegaCmd sink
type Options struct {
	// CommandTimeout bounds each MEGAcmd invocation
	CommandTimeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again
	OpenTimeout time.Duration
}

// MegaCmd drives the MEGAcmd command line tools
type MegaCmd struct {
	runner  Runner
	creds   Credentials
	opts    Options
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  logger.Logger
}

// NewMegaCmd creates a sink that runs MEGAcmd through runner
func NewMegaCmd(runner Runner, creds Credentials, opts Options, log logger.Logger) *MegaCmd {
	if runner == nil {
		runner = ExecRunner{}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 5 * time.Minute
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = time.Minute
	}
	log = log.WithField("component", "archive")

	threshold := opts.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "megacmd",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WarnWithFields("Archive circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &MegaCmd{
		runner:  runner,
		creds:   creds,
		opts:    opts,
		breaker: breaker,
		logger:  log,
	}
}

// Login signs in to MEGA. An existing session counts as success.
func (m *MegaCmd) Login(ctx context.Context) error {
	if m.creds.Email == "" || m.creds.Password == "" {
		return errs.New(errs.ErrorTypeConfig, 0, "MEGA email and password are required")
	}

	args := []string{m.creds.Email, m.creds.Password}
	if m.creds.AuthCode != "" {
		args = append(args, "--auth-code="+m.creds.AuthCode)
	}

	_, err := m.run(ctx, "mega-login", args...)
	var cmdErr *CommandError
	switch {
	case err == nil:
		m.logger.Info("Logged in to MEGA")
		return nil
	case errors.As(err, &cmdErr) && cmdErr.ExitCode == exitAlreadyLoggedIn:
		m.logger.Debug("Already logged in to MEGA")
		return nil
	default:
		return errs.Wrap(errs.ErrorTypeAuth, exitCode(err), "mega-login failed", err)
	}
}

// Logout ends the MEGA session
func (m *MegaCmd) Logout(ctx context.Context) error {
	if _, err := m.run(ctx, "mega-logout"); err != nil {
		return errs.Wrap(errs.ErrorTypeArchive, exitCode(err), "mega-logout failed", err)
	}
	m.logger.Info("Logged out of MEGA")
	return nil
}

// FolderSize runs mega-du on remotePath
func (m *MegaCmd) FolderSize(ctx context.Context, remotePath string) (int64, error) {
	out, err := m.protected(ctx, "mega-du", remotePath)
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, errs.Wrap(errs.ErrorTypeArchive, exitCode(err), "mega-du failed", err)
	}
	return parseDu(string(out)), nil
}

// Put uploads localPath with mega-put -c
func (m *MegaCmd) Put(ctx context.Context, localPath, remotePath string) error {
	if _, err := m.protected(ctx, "mega-put", "-c", localPath, remotePath); err != nil {
		return errs.Wrap(errs.ErrorTypeArchive, exitCode(err), "mega-put failed", err)
	}
	return nil
}

// protected runs a command through the breaker. A missing folder is not a
// failure of the archive.
func (m *MegaCmd) protected(ctx context.Context, name string, args ...string) ([]byte, error) {
	var notFound error
	out, err := m.breaker.Execute(func() ([]byte, error) {
		out, err := m.run(ctx, name, args...)
		if err != nil && isNotFound(err) {
			notFound = err
			return out, nil
		}
		return out, err
	})
	if notFound != nil {
		return out, notFound
	}
	return out, err
}

func (m *MegaCmd) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.opts.CommandTimeout)
	defer cancel()

	start := time.Now()
	out, err := m.runner.Run(ctx, name, args...)
	m.logger.DebugWithFields("MEGAcmd finished", map[string]interface{}{
		"command":  name,
		"duration": time.Since(start),
		"failed":   err != nil,
	})
	return out, err
}

var (
	duTotal = regexp.MustCompile(`(?i)total storage used:\s*(\d+)`)
	duEntry = regexp.MustCompile(`:\s*(\d+)`)
	anyInt  = regexp.MustCompile(`\d+`)
)

// parseDu extracts the byte count from mega-du output, zero when there is none
func parseDu(out string) int64 {
	for _, re := range []*regexp.Regexp{duTotal, duEntry} {
		if m := re.FindStringSubmatch(out); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				return n
			}
		}
	}
	if m := anyInt.FindString(out); m != "" {
		if n, err := strconv.ParseInt(m, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func isNotFound(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	if cmdErr.ExitCode == exitNotFound {
		return true
	}
	msg := strings.ToLower(cmdErr.Stderr)
	return strings.Contains(msg, "not found") || strings.Contains(msg, "couldn't find")
}

func exitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode
	}
	return 0
}

// String describes the sink for logs
func (m *MegaCmd) String() string {
	return fmt.Sprintf("megacmd(%s)", m.creds.Email)
}
