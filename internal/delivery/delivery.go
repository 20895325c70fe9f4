// Package delivery implements the strategy chain that turns an asset URL into a
// saved file, with every environment effect behind an injectable Sink.
package delivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/pngnest/pngnest/util"
)

var (
	ErrNoURL  = errors.New("delivery has no source URL")
	ErrNoSink = errors.New("delivery has no sink")
)

type Delivery interface {
	// AddDownloadedBytes increases how many bytes have been fetched so far.
	AddDownloadedBytes(n int)

	// AddExpectedBytes increases how many bytes are expected in total.
	AddExpectedBytes(n int)

	// Cancel the Delivery, stopping any in-progress I/O activity.
	Cancel()

	// Client is the HTTP client strategies fetch with.
	Client() *http.Client

	// Context is the cancellable context of this Delivery.
	Context() context.Context

	// Filename is the target name the delivered file should get.
	Filename() string

	// Progress returns the fetched and expected bytes of the delivery.
	Progress() (int, int)

	// SavedPath is where the sink materialized the delivery, empty until a
	// saving strategy succeeds.
	SavedPath() string

	// SetSavedPath records where the sink materialized the delivery.
	SetSavedPath(path string)

	// Sink receives the delivery's effects.
	Sink() Sink

	// URL is the normalized source URL.
	URL() string

	// Write ignores the data but counts the bytes via AddDownloadedBytes, so a
	// fetch can be tapped with io.TeeReader or io.MultiWriter.
	Write(p []byte) (n int, err error)
}

type delivery struct {
	ctx              context.Context
	cancel           context.CancelFunc
	client           *http.Client
	sink             Sink
	url              string
	filename         string
	savedPath        string
	progressCallback func(int, int)
	expectedBytes    int
	downloadedBytes  int
}

func (d *delivery) AddDownloadedBytes(n int) {
	d.downloadedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *delivery) AddExpectedBytes(n int) {
	d.expectedBytes += n
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *delivery) Cancel() {
	d.cancel()
}

func (d *delivery) Client() *http.Client {
	return d.client
}

func (d *delivery) Context() context.Context {
	return d.ctx
}

func (d *delivery) Filename() string {
	return d.filename
}

func (d *delivery) Progress() (int, int) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *delivery) SavedPath() string {
	return d.savedPath
}

func (d *delivery) SetSavedPath(path string) {
	d.savedPath = path
}

func (d *delivery) Sink() Sink {
	return d.sink
}

func (d *delivery) URL() string {
	return d.url
}

func (d *delivery) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(n)
	return n, nil
}

type DeliveryBuilder interface {
	Build() (Delivery, error)
	WithClient(client *http.Client) DeliveryBuilder
	WithContext(ctx context.Context) DeliveryBuilder
	WithFilename(filename string) DeliveryBuilder
	WithProgressCallback(f func(downloaded int, expected int)) DeliveryBuilder
	WithSink(sink Sink) DeliveryBuilder
	WithURL(url string) DeliveryBuilder
}

type deliveryBuilder struct {
	ctx              context.Context
	client           *http.Client
	sink             Sink
	url              string
	filename         string
	progressCallback func(int, int)
}

func NewDeliveryBuilder() DeliveryBuilder {
	return &deliveryBuilder{
		ctx:    context.Background(),
		client: http.DefaultClient,
	}
}

func (b *deliveryBuilder) Build() (Delivery, error) {
	if b.url == "" {
		return nil, ErrNoURL
	}
	if b.sink == nil {
		return nil, ErrNoSink
	}
	d := delivery{}
	d.ctx, d.cancel = context.WithCancel(b.ctx)
	d.client = b.client
	d.sink = b.sink
	d.url = NormalizeURL(b.url)
	d.filename = b.filename
	d.progressCallback = b.progressCallback
	if d.filename == "" {
		filename, err := util.FilenameFromURLString(d.url)
		if err != nil {
			return nil, err
		}
		d.filename = filename
	}
	return &d, nil
}

func (b *deliveryBuilder) WithClient(client *http.Client) DeliveryBuilder {
	b.client = client
	return b
}

func (b *deliveryBuilder) WithContext(ctx context.Context) DeliveryBuilder {
	b.ctx = ctx
	return b
}

func (b *deliveryBuilder) WithFilename(filename string) DeliveryBuilder {
	b.filename = filename
	return b
}

func (b *deliveryBuilder) WithProgressCallback(f func(int, int)) DeliveryBuilder {
	b.progressCallback = f
	return b
}

func (b *deliveryBuilder) WithSink(sink Sink) DeliveryBuilder {
	b.sink = sink
	return b
}

func (b *deliveryBuilder) WithURL(url string) DeliveryBuilder {
	b.url = url
	return b
}
