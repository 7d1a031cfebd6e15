package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"taskctl/internal/apperr"
	"taskctl/internal/auth"
	"taskctl/internal/config"
	"taskctl/internal/exitcode"
	"taskctl/internal/service"
)

// report prints err in the CLI's error format and returns its exit code.
func report(errOut io.Writer, err error) int {
	var rerr *refError
	switch {
	case errors.As(err, &rerr):
		fmt.Fprintf(errOut, "error: %v\n", rerr)
		return exitcode.UserError
	case auth.IsSessionEnded(err):
		fmt.Fprintf(errOut, "error: %v (run: taskctl login)\n", err)
	case apperr.KindOf(err) == apperr.KindValidation:
		fmt.Fprintf(errOut, "error: %v\n", err)
	case apperr.KindOf(err) == apperr.KindAuth:
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	}
	return exitcode.For(err)
}

// usageError prints a usage problem and returns UserError.
func usageError(errOut io.Writer, format string, args ...any) int {
	fmt.Fprintf(errOut, "error: "+format+"\n", args...)
	return exitcode.UserError
}

// done prints the acknowledgement unless quiet.
func done(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

func pageSize(cfg *config.Config) int {
	if cfg.PageSize > 0 {
		return cfg.PageSize
	}
	return config.DefaultPageSize
}

// readSecret reads one line from in, for passwords not given as flags.
func readSecret(in io.Reader) (string, error) {
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", nil
	}
	return strings.TrimRight(sc.Text(), "\r"), nil
}

func inputOr(in io.Reader) io.Reader {
	if in != nil {
		return in
	}
	return os.Stdin
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(service.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s (want YYYY-MM-DD)", s)
	}
	return t, nil
}

// optString is a string flag that remembers whether it was given.
type optString struct {
	value string
	set   bool
}

func (o *optString) String() string { return o.value }

func (o *optString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

func (o *optString) ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}
