package compression

// MakeOptions returns the options with all optional parameters applied.
func MakeOptions(opts ...Option) *Options {
	o := &Options{}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// Option is the optional parameter setting method.
type Option func(o *Options)

// Options is the composite options used to uncompress.
type Options struct {
	Multithread bool
	Multistream *bool
}

// WithMultithread sets the parallel to uncompress.
func WithMultithread(multithread bool) Option {
	return func(o *Options) {
		o.Multithread = multithread
	}
}

// WithMultistream controls whether concatenated streams are read through.
// When set to false only the first stream is uncompressed, which lets a
// nested archive lose exactly one layer.
func WithMultistream(multistream bool) Option {
	return func(o *Options) {
		o.Multistream = &multistream
	}
}
