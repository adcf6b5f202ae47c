package resolver

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/kbukum/cmdstream/errors"
	"github.com/kbukum/cmdstream/httpclient"
	"github.com/kbukum/cmdstream/logger"
)

// Default opens URLs with an HTTP GET, paths with os.Open and passes readers
// through unchanged.
type Default struct {
	client *httpclient.Client
	log    *logger.Logger
}

// Option configures a Default resolver.
type Option func(*Default)

// WithHTTPClient sets the client used for URL items.
func WithHTTPClient(c *httpclient.Client) Option {
	return func(d *Default) { d.client = c }
}

// WithLogger sets the logger. Records are tagged with component "resolver".
func WithLogger(l *logger.Logger) Option {
	return func(d *Default) { d.log = l }
}

// NewDefault creates the default resolver. Without WithHTTPClient a client
// with default httpclient.Config is built.
func NewDefault(opts ...Option) (*Default, error) {
	d := &Default{}
	for _, opt := range opts {
		opt(d)
	}
	if d.client == nil {
		c, err := httpclient.New(httpclient.Config{})
		if err != nil {
			return nil, err
		}
		d.client = c
	}
	if d.log == nil {
		d.log = logger.Nop()
	}
	d.log = d.log.WithComponent("resolver")
	return d, nil
}

// Resolve opens item according to its Kind.
func (d *Default) Resolve(ctx context.Context, item any) (io.Reader, error) {
	src := Classify(item)
	log := d.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldKind, src.Kind.String()))

	switch src.Kind {
	case KindURL:
		resp, err := d.client.Open(ctx, src.URL.String())
		if err != nil {
			log.Debug("fetch failed", logger.ErrorFields("open_url", err))
			return nil, errors.ResolveError(fmt.Sprintf("cannot fetch %s", src.URL.Redacted()), err).
				WithDetail("url", src.URL.Redacted())
		}
		log.Debug("fetch started", logger.Fields("url", src.URL.Redacted(), "content_length", resp.ContentLength))
		return resp.Body, nil

	case KindPath:
		f, err := d.openFile(src.Path)
		if err != nil {
			log.Debug("open failed", logger.ErrorFields("open_path", err))
			return nil, err
		}
		log.Debug("file opened", logger.Fields("path", src.Path))
		return f, nil

	case KindStream:
		return src.Reader, nil

	default:
		return nil, errors.ResolveError(errors.ReasonUnknownSource, nil).
			WithDetail("type", fmt.Sprintf("%T", item))
	}
}

func (d *Default) openFile(path string) (*os.File, error) {
	f, err := os.Open(path) //nolint:gosec // opening caller-supplied paths is the purpose of this resolver
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.ResolveError(errors.ReasonUnknownSource, err).WithDetail("path", path)
		}
		return nil, errors.ResolveError(fmt.Sprintf("cannot open %s", path), err).WithDetail("path", path)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.ResolveError(fmt.Sprintf("cannot stat %s", path), err).WithDetail("path", path)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errors.ResolveError(fmt.Sprintf("%s is a directory", path), nil).WithDetail("path", path)
	}
	return f, nil
}
