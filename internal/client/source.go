// Package client provides the packet sources ips-guard evaluates rules
// against: recorded pcap files and live Hubble flow streams.
package client

import (
	"context"

	"ips-guard/internal/model"
)

// Source delivers decoded packets to handle until the input ends or ctx
// is cancelled. handle is called from a single goroutine.
type Source interface {
	Name() string
	Stream(ctx context.Context, handle func(*model.Packet)) error
}

// DecodeErrorReporter is implemented by sources that skip input they
// cannot decode. fn runs on the streaming goroutine.
type DecodeErrorReporter interface {
	OnDecodeError(fn func(err error))
}
