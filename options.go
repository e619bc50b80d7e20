package mxpack

const (
	// MIN_BUFFER_CAPACITY is the smallest usable working buffer: one tag
	// byte plus an 8-byte payload.
	MIN_BUFFER_CAPACITY = 9

	// DEFAULT_BUFFER_CAPACITY is the working buffer size used when no
	// buffer or capacity option is given.
	DEFAULT_BUFFER_CAPACITY = 1 << 13
)

type options struct {
	buffer               []byte
	capacity             int
	allocator            BufferAllocator
	maxAllocatorCapacity int
	stringDecoder        StringDecoder
	identifierDecoder    StringDecoder
	stringEncoder        StringEncoder
	identifierEncoder    StringEncoder
}

// Option configures a Reader or Writer at construction time.
type Option func(*options)

func defaultOptions() options {
	return options{
		capacity:             DEFAULT_BUFFER_CAPACITY,
		maxAllocatorCapacity: DEFAULT_MAX_ALLOCATOR_CAPACITY,
	}
}

// WithBuffer supplies the working buffer. Its capacity determines how
// many bytes move between the buffer and the source or sink at once and
// must be at least MIN_BUFFER_CAPACITY.
func WithBuffer(buf []byte) Option {
	return func(o *options) { o.buffer = buf }
}

// WithBufferCapacity sets the working buffer capacity. Ignored when
// WithBuffer is also given.
func WithBufferCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithAllocator supplies the allocator used for auxiliary buffers. The
// caller keeps ownership; Close does not close it.
func WithAllocator(a BufferAllocator) Option {
	return func(o *options) { o.allocator = a }
}

// WithMaxAllocatorCapacity bounds the default allocator. This caps the
// largest string payload that can be staged outside the working buffer.
// Ignored when WithAllocator is also given.
func WithMaxAllocatorCapacity(n int) Option {
	return func(o *options) { o.maxAllocatorCapacity = n }
}

// WithStringDecoder replaces the strict UTF-8 decoder used by ReadString.
func WithStringDecoder(d StringDecoder) Option {
	return func(o *options) { o.stringDecoder = d }
}

// WithIdentifierDecoder replaces the interning decoder used by
// ReadIdentifier.
func WithIdentifierDecoder(d StringDecoder) Option {
	return func(o *options) { o.identifierDecoder = d }
}

// WithStringEncoder replaces the strict UTF-8 encoder used by WriteString.
func WithStringEncoder(e StringEncoder) Option {
	return func(o *options) { o.stringEncoder = e }
}

// WithIdentifierEncoder replaces the encoder used by WriteIdentifier.
func WithIdentifierEncoder(e StringEncoder) Option {
	return func(o *options) { o.identifierEncoder = e }
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
