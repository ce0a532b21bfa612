package store

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sync"
	"time"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/logging"
)

// RecordStore provides random access to fixed-size records in a single file.
//
// All public methods lock the store for their whole duration. Sequences of
// calls such as SeekRecord followed by Read are not atomic; callers sharing a
// store between goroutines must hold their own lock around such sequences.
// Opening two stores on the same file is not supported.
type RecordStore[T any] struct {
	config     Config
	codec      codec.Codec[T]
	records    *codec.RecordCodec
	recordSize int64
	file       *os.File
	logger     *slog.Logger
	mutex      sync.Mutex
}

// Open opens or creates the data file at config.FilePath.
//
// If the file cannot be opened, Open returns a degraded store together with
// an error of kind KindFileNotFound. A degraded store reports its record size
// but fails every I/O operation with that operation's kind.
func Open[T any](config Config, c codec.Codec[T]) (*RecordStore[T], error) {
	if config.Text == (codec.TextFormat{}) {
		config.Text = codec.DefaultTextFormat()
	}
	if config.Perm == 0 {
		config.Perm = 0600
	}

	records, err := codec.NewRecordCodec(c.Schema(), config.Text)
	if err != nil {
		return nil, fmt.Errorf("invalid record schema: %w", err)
	}

	logger := config.Logger
	if logger == nil {
		logger = logging.WithComponent("store")
	}

	s := &RecordStore[T]{
		config:     config,
		codec:      c,
		records:    records,
		recordSize: int64(records.Size()),
		logger:     logger.With("file", config.FilePath),
	}

	file, err := os.OpenFile(config.FilePath, os.O_RDWR|os.O_CREATE, config.Perm)
	if err != nil {
		return s, s.fail("open", KindFileNotFound, err)
	}
	s.file = file

	s.logger.Debug("record store opened", "record_size", s.recordSize)
	return s, nil
}

// Close releases the file handle. Closing a degraded or already closed
// store fails with KindCloseFailed.
func (s *RecordStore[T]) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.file == nil {
		return s.fail("close", KindCloseFailed, ErrNotOpen)
	}

	err := s.file.Close()
	s.file = nil
	if err != nil {
		return s.fail("close", KindCloseFailed, err)
	}

	s.logger.Debug("record store closed")
	return nil
}

// RecordSize returns the byte width of one record
func (s *RecordStore[T]) RecordSize() int {
	return int(s.recordSize)
}

// FilePath returns the data file path
func (s *RecordStore[T]) FilePath() string {
	return s.config.FilePath
}

// Degraded reports whether the store has no usable file handle
func (s *RecordStore[T]) Degraded() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.file == nil
}

// fail builds a typed error and logs it where it happened
func (s *RecordStore[T]) fail(op string, kind Kind, err error) error {
	e := &Error{Op: op, Kind: kind, Path: s.config.FilePath, Err: err}
	if errors.Is(err, io.EOF) {
		s.logger.Debug(kindMessages[kind], "op", op, "error", err)
	} else {
		s.logger.Error(kindMessages[kind], "op", op, "error", err)
	}
	return e
}

// observe reports a finished operation to the configured observer
func (s *RecordStore[T]) observe(op string, start time.Time, err error) {
	if s.config.Observer != nil {
		s.config.Observer.ObserveOperation(op, err, time.Since(start))
	}
}

func (s *RecordStore[T]) handle(op string, kind Kind) (*os.File, error) {
	if s.file == nil {
		return nil, s.fail(op, kind, ErrNotOpen)
	}
	return s.file, nil
}

// Primitive I/O

func (s *RecordStore[T]) writeBytes(op string, buf []byte) error {
	f, err := s.handle(op, KindWriteFailed)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf); err != nil {
		return s.fail(op, KindWriteFailed, err)
	}
	return nil
}

// readBytes fills buf from the current position. On failure the position is
// left unchanged.
func (s *RecordStore[T]) readBytes(op string, buf []byte) error {
	f, err := s.handle(op, KindReadFailed)
	if err != nil {
		return err
	}

	pos, err := s.position(op)
	if err != nil {
		return err
	}

	if _, err := f.ReadAt(buf, pos); err != nil {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w at offset %d: %w", ErrNoRecord, pos, err)
		}
		return s.fail(op, KindReadFailed, err)
	}

	return s.seek(op, pos+int64(len(buf)))
}

func (s *RecordStore[T]) writeField(op string, field codec.Field) error {
	buf := make([]byte, codec.Width(field.Type(), s.config.Text))
	if err := codec.PutField(buf, field, s.config.Text); err != nil {
		return s.fail(op, KindWriteFailed, err)
	}
	return s.writeBytes(op, buf)
}

func (s *RecordStore[T]) readField(op string, t codec.FieldType) (codec.Field, error) {
	buf := make([]byte, codec.Width(t, s.config.Text))
	if err := s.readBytes(op, buf); err != nil {
		return nil, err
	}
	f, err := codec.ReadField(buf, t, s.config.Text)
	if err != nil {
		return nil, s.fail(op, KindReadFailed, err)
	}
	return f, nil
}

// WriteText writes a fixed-width text field at the current position
func (s *RecordStore[T]) WriteText(v string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writeField("write_text", codec.Text(v))
}

// WriteInt32 writes a big-endian int32 at the current position
func (s *RecordStore[T]) WriteInt32(v int32) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writeField("write_int32", codec.Int32(v))
}

// WriteFloat32 writes an IEEE-754 single at the current position
func (s *RecordStore[T]) WriteFloat32(v float32) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writeField("write_float32", codec.Float32(v))
}

// WriteFloat64 writes an IEEE-754 double at the current position
func (s *RecordStore[T]) WriteFloat64(v float64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writeField("write_float64", codec.Float64(v))
}

// WriteBool writes 0x00 or 0x01 at the current position
func (s *RecordStore[T]) WriteBool(v bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writeField("write_bool", codec.Bool(v))
}

// WriteByte writes one raw byte at the current position
func (s *RecordStore[T]) WriteByte(v byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.writeField("write_byte", codec.Byte(v))
}

// ReadText reads a fixed-width text field with its padding removed
func (s *RecordStore[T]) ReadText() (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	f, err := s.readField("read_text", codec.TypeText)
	if err != nil {
		return "", err
	}
	return string(f.(codec.Text)), nil
}

func (s *RecordStore[T]) ReadInt32() (int32, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	f, err := s.readField("read_int32", codec.TypeInt32)
	if err != nil {
		return 0, err
	}
	return int32(f.(codec.Int32)), nil
}

func (s *RecordStore[T]) ReadFloat32() (float32, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	f, err := s.readField("read_float32", codec.TypeFloat32)
	if err != nil {
		return 0, err
	}
	return float32(f.(codec.Float32)), nil
}

func (s *RecordStore[T]) ReadFloat64() (float64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	f, err := s.readField("read_float64", codec.TypeFloat64)
	if err != nil {
		return 0, err
	}
	return float64(f.(codec.Float64)), nil
}

func (s *RecordStore[T]) ReadBool() (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	f, err := s.readField("read_bool", codec.TypeBool)
	if err != nil {
		return false, err
	}
	return bool(f.(codec.Bool)), nil
}

func (s *RecordStore[T]) ReadByte() (byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	f, err := s.readField("read_byte", codec.TypeByte)
	if err != nil {
		return 0, err
	}
	return byte(f.(codec.Byte)), nil
}

// Positioning

func (s *RecordStore[T]) position(op string) (int64, error) {
	f, err := s.handle(op, KindPointerQueryFailed)
	if err != nil {
		return 0, err
	}
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, s.fail(op, KindPointerQueryFailed, err)
	}
	return pos, nil
}

func (s *RecordStore[T]) length(op string) (int64, error) {
	f, err := s.handle(op, KindPointerQueryFailed)
	if err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, s.fail(op, KindPointerQueryFailed, err)
	}
	return info.Size(), nil
}

func (s *RecordStore[T]) seek(op string, offset int64) error {
	f, err := s.handle(op, KindPointerSeekFailed)
	if err != nil {
		return err
	}
	if offset < 0 {
		return s.fail(op, KindPointerSeekFailed, fmt.Errorf("negative offset %d", offset))
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return s.fail(op, KindPointerSeekFailed, err)
	}
	return nil
}

func (s *RecordStore[T]) setLength(op string, n int64) error {
	f, err := s.handle(op, KindTruncateFailed)
	if err != nil {
		return err
	}
	if n < 0 {
		return s.fail(op, KindTruncateFailed, fmt.Errorf("negative length %d", n))
	}

	pos, err := s.position(op)
	if err != nil {
		return err
	}
	if err := f.Truncate(n); err != nil {
		return s.fail(op, KindTruncateFailed, err)
	}
	// the pointer never stays past the end of a shortened file
	if pos > n {
		return s.seek(op, n)
	}
	return nil
}

// Position returns the current byte offset
func (s *RecordStore[T]) Position() (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.position("position")
}

// Length returns the file length in bytes
func (s *RecordStore[T]) Length() (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.length("length")
}

// Count returns the number of complete records in the file. A partially
// written trailing record is not counted.
func (s *RecordStore[T]) Count() (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	n, err := s.length("count")
	if err != nil {
		return 0, err
	}
	return n / s.recordSize, nil
}

// SeekTo moves to an absolute byte offset
func (s *RecordStore[T]) SeekTo(offset int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.seek("seek", offset)
}

// SeekStart moves to offset 0
func (s *RecordStore[T]) SeekStart() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.seek("seek_start", 0)
}

// SeekEnd moves to the end of the file
func (s *RecordStore[T]) SeekEnd() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.handle("seek_end", KindPointerSeekFailed); err != nil {
		return err
	}
	n, err := s.length("seek_end")
	if err != nil {
		return err
	}
	return s.seek("seek_end", n)
}

// offsetOf returns the byte offset of the record at index. Indexes whose
// offset does not fit in an int64 fail with KindPointerSeekFailed.
func (s *RecordStore[T]) offsetOf(op string, index int64) (int64, error) {
	if index < 0 {
		return 0, s.fail(op, KindPointerSeekFailed, fmt.Errorf("negative record index %d", index))
	}
	if index > math.MaxInt64/s.recordSize {
		return 0, s.fail(op, KindPointerSeekFailed,
			fmt.Errorf("%w: record index %d out of range", ErrNoRecord, index))
	}
	return index * s.recordSize, nil
}

func (s *RecordStore[T]) seekRecord(op string, index int64) error {
	if _, err := s.handle(op, KindPointerSeekFailed); err != nil {
		return err
	}
	offset, err := s.offsetOf(op, index)
	if err != nil {
		return err
	}
	return s.seek(op, offset)
}

// SeekRecord moves to the start of the record at index
func (s *RecordStore[T]) SeekRecord(index int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.seekRecord("seek_record", index)
}

// Move moves n records forward from the current position; n may be negative
func (s *RecordStore[T]) Move(n int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.move("move", n)
}

// MoveBack moves n records backward
func (s *RecordStore[T]) MoveBack(n int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.move("move_back", -n)
}

func (s *RecordStore[T]) move(op string, n int64) error {
	if _, err := s.handle(op, KindPointerSeekFailed); err != nil {
		return err
	}
	pos, err := s.position(op)
	if err != nil {
		return err
	}
	if n > math.MaxInt64/s.recordSize || n < -(math.MaxInt64/s.recordSize) {
		return s.fail(op, KindPointerSeekFailed, fmt.Errorf("move of %d records out of range", n))
	}
	delta := n * s.recordSize
	if delta > 0 && pos > math.MaxInt64-delta {
		return s.fail(op, KindPointerSeekFailed, fmt.Errorf("move of %d records from offset %d out of range", n, pos))
	}
	return s.seek(op, pos+delta)
}

// SetLength truncates or zero-extends the file to exactly n bytes
func (s *RecordStore[T]) SetLength(n int64) (err error) {
	defer func(start time.Time) { s.observe("set_length", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.setLength("set_length", n)
}

// Stats reports the record size, record count and file size
func (s *RecordStore[T]) Stats() (*Stats, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	n, err := s.length("stats")
	if err != nil {
		return nil, err
	}
	return &Stats{
		FilePath:   s.config.FilePath,
		RecordSize: int(s.recordSize),
		Records:    n / s.recordSize,
		SizeBytes:  n,
	}, nil
}
