package store

import (
	"fmt"
	"time"
)

func (s *RecordStore[T]) encode(op string, v T) ([]byte, error) {
	buf, err := s.records.Encode(s.codec.Encode(v))
	if err != nil {
		return nil, s.fail(op, KindWriteFailed, err)
	}
	return buf, nil
}

func (s *RecordStore[T]) decode(op string, buf []byte) (T, error) {
	var zero T
	fields, err := s.records.Decode(buf)
	if err != nil {
		return zero, s.fail(op, KindReadFailed, err)
	}
	v, err := s.codec.Decode(fields)
	if err != nil {
		return zero, s.fail(op, KindReadFailed, err)
	}
	return v, nil
}

// readRecord reads and decodes one record. Nothing is returned for a partial
// record and the position only advances on success.
func (s *RecordStore[T]) readRecord(op string) (T, error) {
	var zero T

	pos, err := s.position(op)
	if err != nil {
		return zero, err
	}

	buf := make([]byte, s.recordSize)
	if err := s.readBytes(op, buf); err != nil {
		return zero, err
	}

	v, err := s.decode(op, buf)
	if err != nil {
		if seekErr := s.seek(op, pos); seekErr != nil {
			return zero, seekErr
		}
		return zero, err
	}
	return v, nil
}

// readTail reads the raw bytes of every complete record from the current
// position to the end of the file
func (s *RecordStore[T]) readTail(op string) (int64, []byte, error) {
	pos, err := s.position(op)
	if err != nil {
		return 0, nil, err
	}
	n, err := s.length(op)
	if err != nil {
		return 0, nil, err
	}

	size := int64(0)
	if n > pos {
		size = (n - pos) / s.recordSize * s.recordSize
	}

	tail := make([]byte, size)
	if size > 0 {
		if err := s.readBytes(op, tail); err != nil {
			return 0, nil, err
		}
	}
	return pos, tail, nil
}

// Write encodes v and writes it at the current position, advancing by one record
func (s *RecordStore[T]) Write(v T) (err error) {
	defer func(start time.Time) { s.observe("write", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.handle("write", KindWriteFailed); err != nil {
		return err
	}
	buf, err := s.encode("write", v)
	if err != nil {
		return err
	}
	return s.writeBytes("write", buf)
}

// WriteAll writes each value in order, stopping at the first failure
func (s *RecordStore[T]) WriteAll(values []T) (err error) {
	defer func(start time.Time) { s.observe("write_all", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.handle("write_all", KindWriteFailed); err != nil {
		return err
	}
	for i, v := range values {
		buf, err := s.encode("write_all", v)
		if err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
		if err := s.writeBytes("write_all", buf); err != nil {
			return fmt.Errorf("value %d: %w", i, err)
		}
	}
	return nil
}

// Read decodes the record at the current position, advancing by one record.
// A read is all-or-nothing: if the record is incomplete or cannot be
// decoded, Read fails with KindReadFailed and the position is unchanged.
func (s *RecordStore[T]) Read() (v T, err error) {
	defer func(start time.Time) { s.observe("read", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.handle("read", KindReadFailed); err != nil {
		return v, err
	}
	return s.readRecord("read")
}

// ReadRecord seeks to index and reads that record
func (s *RecordStore[T]) ReadRecord(index int64) (v T, err error) {
	defer func(start time.Time) { s.observe("read", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.seekRecord("read_record", index); err != nil {
		return v, err
	}
	return s.readRecord("read_record")
}

// WriteRecord seeks to index and overwrites that record
func (s *RecordStore[T]) WriteRecord(index int64, v T) (err error) {
	defer func(start time.Time) { s.observe("write", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	buf, err := s.encode("write_record", v)
	if err != nil {
		return err
	}
	if err := s.seekRecord("write_record", index); err != nil {
		return err
	}
	return s.writeBytes("write_record", buf)
}

// ReadHereToEnd reads every complete record from the current position to
// the end of the file. The position ends after the last record read.
func (s *RecordStore[T]) ReadHereToEnd() (values []T, err error) {
	defer func(start time.Time) { s.observe("read_all", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.readHereToEnd("read_here_to_end")
}

// ReadStartToEnd reads every record in the file
func (s *RecordStore[T]) ReadStartToEnd() (values []T, err error) {
	defer func(start time.Time) { s.observe("read_all", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.seek("read_start_to_end", 0); err != nil {
		return nil, err
	}
	return s.readHereToEnd("read_start_to_end")
}

func (s *RecordStore[T]) readHereToEnd(op string) ([]T, error) {
	_, tail, err := s.readTail(op)
	if err != nil {
		return nil, err
	}

	values := make([]T, 0, int64(len(tail))/s.recordSize)
	for off := int64(0); off < int64(len(tail)); off += s.recordSize {
		v, err := s.decode(op, tail[off:off+s.recordSize])
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

// Append inserts v before the record at the current position. Every record
// from the position to the end is read into memory, the file is cut at the
// position and the tail is rewritten after v. The position ends at the end
// of the file. Cost is proportional to the number of records after the
// position.
func (s *RecordStore[T]) Append(v T) (err error) {
	defer func(start time.Time) { s.observe("append", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.handle("append", KindWriteFailed); err != nil {
		return err
	}
	buf, err := s.encode("append", v)
	if err != nil {
		return err
	}

	pos, tail, err := s.readTail("append")
	if err != nil {
		return err
	}

	if err := s.rewrite("append", pos, append(buf, tail...)); err != nil {
		return err
	}

	s.logger.Debug("record appended", "offset", pos, "shifted", int64(len(tail))/s.recordSize)
	return nil
}

// Delete removes the record at the current position and shifts every later
// record down by one. The position ends at the end of the file. Deleting at
// or past the last record fails with KindReadFailed.
func (s *RecordStore[T]) Delete() (err error) {
	defer func(start time.Time) { s.observe("delete", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, err := s.handle("delete", KindWriteFailed); err != nil {
		return err
	}

	pos, tail, err := s.readTail("delete")
	if err != nil {
		return err
	}
	if int64(len(tail)) < s.recordSize {
		return s.fail("delete", KindReadFailed, fmt.Errorf("%w at offset %d", ErrNoRecord, pos))
	}

	if err := s.rewrite("delete", pos, tail[s.recordSize:]); err != nil {
		return err
	}

	s.logger.Debug("record deleted", "offset", pos, "shifted", int64(len(tail))/s.recordSize-1)
	return nil
}

// rewrite replaces everything from pos to the end of the file with data
func (s *RecordStore[T]) rewrite(op string, pos int64, data []byte) error {
	if s.config.AtomicRewrite {
		return s.rewriteAtomic(op, pos, data)
	}

	if err := s.seek(op, pos); err != nil {
		return err
	}
	if err := s.setLength(op, pos); err != nil {
		return err
	}
	return s.writeBytes(op, data)
}

// Swap exchanges the records at indexes a and b. Both records are read
// before either is written, but the two writes are separate: a crash
// between them leaves one record duplicated. The position ends after b.
func (s *RecordStore[T]) Swap(a, b int64) (err error) {
	defer func(start time.Time) { s.observe("swap", start, err) }(time.Now())

	s.mutex.Lock()
	defer s.mutex.Unlock()

	f, err := s.handle("swap", KindReadFailed)
	if err != nil {
		return err
	}
	offA, err := s.offsetOf("swap", a)
	if err != nil {
		return err
	}
	offB, err := s.offsetOf("swap", b)
	if err != nil {
		return err
	}
	recA := make([]byte, s.recordSize)
	recB := make([]byte, s.recordSize)

	if _, err := f.ReadAt(recA, offA); err != nil {
		return s.fail("swap", KindReadFailed, fmt.Errorf("%w %d: %w", ErrNoRecord, a, err))
	}
	if _, err := f.ReadAt(recB, offB); err != nil {
		return s.fail("swap", KindReadFailed, fmt.Errorf("%w %d: %w", ErrNoRecord, b, err))
	}

	if _, err := f.WriteAt(recB, offA); err != nil {
		return s.fail("swap", KindWriteFailed, err)
	}
	if _, err := f.WriteAt(recA, offB); err != nil {
		return s.fail("swap", KindWriteFailed, err)
	}

	return s.seek("swap", offB+s.recordSize)
}

// RecordIterator streams records from the store's current position. It
// shares the store's file position, so it cannot be restarted and other
// positioning calls made during iteration change what it reads next.
type RecordIterator[T any] struct {
	store *RecordStore[T]
	value T
	err   error
	done  bool
}

// Iterator returns a streaming iterator over the records from the current
// position to the end of the file
func (s *RecordStore[T]) Iterator() *RecordIterator[T] {
	return &RecordIterator[T]{store: s}
}

// Next reads the next record, returning false at the end of the file or on
// failure
func (it *RecordIterator[T]) Next() bool {
	if it.done {
		return false
	}

	s := it.store
	s.mutex.Lock()
	defer s.mutex.Unlock()

	pos, err := s.position("iterate")
	if err != nil {
		it.err, it.done = err, true
		return false
	}
	n, err := s.length("iterate")
	if err != nil {
		it.err, it.done = err, true
		return false
	}
	if pos+s.recordSize > n {
		it.done = true
		return false
	}

	it.value, it.err = s.readRecord("iterate")
	if it.err != nil {
		it.done = true
		return false
	}
	return true
}

// Value returns the record read by the last successful Next
func (it *RecordIterator[T]) Value() T {
	return it.value
}

// Err returns the failure that stopped iteration, if any
func (it *RecordIterator[T]) Err() error {
	return it.err
}
