package framing

// DefaultMaxMessageSize is the default capacity of the reassembly buffer.
const DefaultMaxMessageSize = 8 * 1024

// State is the state of the receive parser.
type State int

const (
	// StateIdle waits for START, everything else is discarded.
	StateIdle State = iota
	// StateInMessage collects payload bytes until STOP.
	StateInMessage
	// StateEscaped stores the next byte verbatim.
	StateEscaped
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInMessage:
		return "in-message"
	case StateEscaped:
		return "escaped"
	}
	return "unknown"
}

// MessageHandler is called when a complete message is decoded.
type MessageHandler interface {
	HandleMessage([]byte)
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func([]byte)

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(msg []byte) {
	f(msg)
}

// ParseResult indicates the result after one parsing step.
type ParseResult struct {
	State State
	// Complete is set when STOP terminated a message, Message holds a copy
	// of its payload (possibly empty).
	Complete bool
	Message  []byte
	Err      error
}

// Parser reassembles messages from an arbitrarily chunked byte stream.
// A Parser belongs to exactly one connection and is not safe for
// concurrent use.
type Parser struct {
	Handler MessageHandler

	state State
	buf   []byte
	index int
}

// NewParser creates a Parser with a reassembly buffer of maxSize bytes.
func NewParser(maxSize int, h MessageHandler) *Parser {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Parser{Handler: h, buf: make([]byte, maxSize)}
}

// State gets the current state.
func (p *Parser) State() State {
	return p.state
}

// Buffered returns the number of payload bytes of the partial message.
func (p *Parser) Buffered() int {
	return p.index
}

// Reset drops any partial message and waits for START.
func (p *Parser) Reset() {
	p.state, p.index = StateIdle, 0
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) (pr ParseResult) {
	switch p.state {
	case StateIdle:
		p.parseIdle(b)
	case StateInMessage:
		pr = p.parseInMessage(b)
	case StateEscaped:
		pr.Err = p.parseEscaped(b)
	}
	pr.State = p.state
	return
}

// Feed parses a chunk of bytes and calls Handler for every complete
// message. It stops at the first overflow and returns ErrOverflow.
func (p *Parser) Feed(data []byte) error {
	for _, b := range data {
		pr := p.Parse(b)
		if pr.Err != nil {
			return pr.Err
		}
		if pr.Complete {
			if h := p.Handler; h != nil {
				h.HandleMessage(pr.Message)
			}
		}
	}
	return nil
}

func (p *Parser) parseIdle(b byte) {
	if b == StartByte {
		p.state, p.index = StateInMessage, 0
	}
}

func (p *Parser) parseInMessage(b byte) (pr ParseResult) {
	switch b {
	case StopByte:
		pr.Complete = true
		pr.Message = append(make([]byte, 0, p.index), p.buf[:p.index]...)
		p.state, p.index = StateIdle, 0
	case EscapeByte:
		p.state = StateEscaped
	case StartByte:
		// resync: a new START always wins over the partial message.
		p.index = 0
	default:
		pr.Err = p.store(b)
	}
	return
}

func (p *Parser) parseEscaped(b byte) error {
	p.state = StateInMessage
	return p.store(b)
}

func (p *Parser) store(b byte) error {
	if p.index >= len(p.buf) {
		p.Reset()
		return ErrOverflow
	}
	p.buf[p.index] = b
	p.index++
	return nil
}
