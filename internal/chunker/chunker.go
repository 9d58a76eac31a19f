package chunker

import (
	"fmt"
	"io"

	"github.com/jaywantadh/PixelVault/internal/fault"
)

// Block is one fixed-size slice of the source stream. Data is always
// exactly the splitter's block size; Real counts the bytes that came from
// the source, the remainder being zero padding.
type Block struct {
	Index int
	Data  []byte
	Real  int
	Final bool
}

// Padding returns the number of trailing pad bytes in the block.
func (b Block) Padding() int {
	return len(b.Data) - b.Real
}

// Splitter turns a byte stream into an ordered sequence of fixed-size
// blocks. An empty stream yields a single fully padded block so every
// group holds at least one container.
type Splitter struct {
	src       io.Reader
	blockSize int

	index int
	next  []byte // lookahead block, nil before the first read
	nextN int
	done  bool
	read  int64
}

// NewSplitter returns a splitter reading src sequentially, once.
func NewSplitter(src io.Reader, blockSize int) (*Splitter, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", fault.ErrInvalidBlockSize, blockSize)
	}
	return &Splitter{src: src, blockSize: blockSize}, nil
}

// BlockSize returns the configured block size.
func (s *Splitter) BlockSize() int { return s.blockSize }

// BytesRead returns the number of source bytes consumed so far.
func (s *Splitter) BytesRead() int64 { return s.read }

// Next returns the next block, or io.EOF after the final one.
func (s *Splitter) Next() (Block, error) {
	if s.done {
		return Block{}, io.EOF
	}

	if s.next == nil {
		buf, n, err := s.fill()
		if err != nil {
			return Block{}, err
		}
		s.next, s.nextN = buf, n
	}

	cur, curN := s.next, s.nextN
	final := curN < s.blockSize
	if !final {
		// a full block is final only when nothing follows it
		buf, n, err := s.fill()
		if err != nil {
			return Block{}, err
		}
		if n == 0 {
			final = true
			s.next = nil
		} else {
			s.next, s.nextN = buf, n
		}
	}

	block := Block{Index: s.index, Data: cur, Real: curN, Final: final}
	s.index++
	if final {
		s.done = true
		s.next = nil
	}
	return block, nil
}

// fill reads up to one block from the source. The returned buffer is
// always blockSize long and zero padded past n.
func (s *Splitter) fill() ([]byte, int, error) {
	buf := make([]byte, s.blockSize)
	n, err := io.ReadFull(s.src, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, 0, fmt.Errorf("failed to read block %d: %w", s.index, err)
	}
	s.read += int64(n)
	return buf, n, nil
}

// Reset rewinds the splitter to the start of its source. The source must
// implement io.Seeker.
func (s *Splitter) Reset() error {
	seeker, ok := s.src.(io.Seeker)
	if !ok {
		return fault.ErrNotRestartable
	}
	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind source: %w", err)
	}
	s.index = 0
	s.next = nil
	s.nextN = 0
	s.done = false
	s.read = 0
	return nil
}

// BlockCount returns ceil(length/blockSize), with a minimum of one block
// for empty input.
func BlockCount(length int64, blockSize int) int {
	if blockSize <= 0 || length < 0 {
		return 0
	}
	if length == 0 {
		return 1
	}
	b := int64(blockSize)
	return int((length + b - 1) / b)
}

// FinalBlockLength returns the number of real bytes in the last block:
// length mod blockSize, blockSize on an exact multiple, zero for empty
// input.
func FinalBlockLength(length int64, blockSize int) int {
	if blockSize <= 0 || length <= 0 {
		return 0
	}
	r := int(length % int64(blockSize))
	if r == 0 {
		return blockSize
	}
	return r
}
