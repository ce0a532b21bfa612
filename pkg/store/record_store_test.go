package store

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/logging"
)

type testObject struct {
	Name     string
	Age      int32
	Grade    float32
	BigGrade float64
	Happy    bool
}

type testCodec struct{}

func (c testCodec) Schema() codec.Schema {
	return codec.SchemaOf(c.Encode(testObject{}))
}

func (testCodec) Encode(o testObject) []codec.Field {
	return []codec.Field{
		codec.Text(o.Name),
		codec.Int32(o.Age),
		codec.Float32(o.Grade),
		codec.Float64(o.BigGrade),
		codec.Bool(o.Happy),
	}
}

func (testCodec) Decode(f []codec.Field) (testObject, error) {
	return testObject{
		Name:     string(f[0].(codec.Text)),
		Age:      int32(f[1].(codec.Int32)),
		Grade:    float32(f[2].(codec.Float32)),
		BigGrade: float64(f[3].(codec.Float64)),
		Happy:    bool(f[4].(codec.Bool)),
	}, nil
}

// 20 UTF-16 chars + int32 + float32 + float64 + bool
const testRecordSize = 40 + 4 + 4 + 8 + 1

func obj(name string) testObject {
	return testObject{Name: name, Age: 18, Grade: 20, BigGrade: 20, Happy: true}
}

func names(values []testObject) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.Name
	}
	return out
}

func testConfig(t *testing.T, atomic bool) Config {
	t.Helper()
	return Config{
		FilePath:      filepath.Join(t.TempDir(), "data.dat"),
		AtomicRewrite: atomic,
		Logger:        logging.Discard(),
	}
}

func openTestStore(t *testing.T, atomic bool) *RecordStore[testObject] {
	t.Helper()
	s, err := Open[testObject](testConfig(t, atomic), testCodec{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// writeAF writes records A..F at indexes 0..5
func writeAF(t *testing.T, s *RecordStore[testObject]) {
	t.Helper()
	for _, name := range []string{"A", "B", "C", "D", "E", "F"} {
		require.NoError(t, s.Write(obj(name)))
	}
}

func readNames(t *testing.T, s *RecordStore[testObject]) []string {
	t.Helper()
	values, err := s.ReadStartToEnd()
	require.NoError(t, err)
	return names(values)
}

func forEachRewriteMode(t *testing.T, fn func(t *testing.T, s *RecordStore[testObject])) {
	for name, atomic := range map[string]bool{"in place": false, "atomic": true} {
		atomic := atomic
		t.Run(name, func(t *testing.T) {
			fn(t, openTestStore(t, atomic))
		})
	}
}

func TestRecordStore_RecordSize(t *testing.T) {
	s := openTestStore(t, false)
	assert.Equal(t, testRecordSize, s.RecordSize())

	narrow, err := Open[testObject](Config{
		FilePath: filepath.Join(t.TempDir(), "narrow.dat"),
		Text:     codec.TextFormat{Length: 10},
		Logger:   logging.Discard(),
	}, testCodec{})
	require.NoError(t, err)
	defer narrow.Close()
	assert.Equal(t, 10+4+4+8+1, narrow.RecordSize())
}

func TestRecordStore_PositionalWrite(t *testing.T) {
	s := openTestStore(t, false)
	writeAF(t, s)

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)

	require.NoError(t, s.SeekRecord(2))
	require.NoError(t, s.Write(obj("X")))

	assert.Equal(t, []string{"A", "B", "X", "D", "E", "F"}, readNames(t, s))

	length, err := s.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(6*testRecordSize), length)
}

func TestRecordStore_RoundTripValues(t *testing.T) {
	s := openTestStore(t, false)

	want := []testObject{
		{Name: "Alice", Age: -7, Grade: 3.5, BigGrade: 1e100, Happy: false},
		{Name: "abcdefghijklmnopqrstuvwxy", Age: 1 << 30, Grade: -0.25, BigGrade: -2.5, Happy: true},
		{Name: "Bob", Age: 0, Grade: 0, BigGrade: 0, Happy: true},
	}
	require.NoError(t, s.WriteAll(want))

	got, err := s.ReadStartToEnd()
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, want[0], got[0])
	assert.Equal(t, "abcdefghijklmnopqrst", got[1].Name)
	assert.Equal(t, want[1].Age, got[1].Age)
	assert.Equal(t, "Bob", got[2].Name)
}

func TestRecordStore_Swap(t *testing.T) {
	s := openTestStore(t, false)
	writeAF(t, s)

	require.NoError(t, s.Swap(0, 5))
	assert.Equal(t, []string{"F", "B", "C", "D", "E", "A"}, readNames(t, s))

	t.Run("position ends after second record", func(t *testing.T) {
		require.NoError(t, s.Swap(3, 1))
		pos, err := s.Position()
		require.NoError(t, err)
		assert.Equal(t, int64(2*testRecordSize), pos)
		assert.Equal(t, []string{"F", "D", "C", "B", "E", "A"}, readNames(t, s))
	})

	t.Run("same index is a no-op", func(t *testing.T) {
		require.NoError(t, s.Swap(2, 2))
		assert.Equal(t, []string{"F", "D", "C", "B", "E", "A"}, readNames(t, s))
	})

	t.Run("out of range", func(t *testing.T) {
		err := s.Swap(0, 6)
		assert.ErrorIs(t, err, ErrReadFailed)
		assert.ErrorIs(t, err, ErrNoRecord)
		assert.Equal(t, []string{"F", "D", "C", "B", "E", "A"}, readNames(t, s))
	})

	t.Run("negative index", func(t *testing.T) {
		assert.ErrorIs(t, s.Swap(-1, 2), ErrPointerSeekFailed)
	})
}

func TestRecordStore_Delete(t *testing.T) {
	forEachRewriteMode(t, func(t *testing.T, s *RecordStore[testObject]) {
		writeAF(t, s)

		require.NoError(t, s.SeekRecord(3))
		require.NoError(t, s.Delete())

		assert.Equal(t, []string{"A", "B", "C", "E", "F"}, readNames(t, s))

		count, err := s.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)

		t.Run("first record", func(t *testing.T) {
			require.NoError(t, s.SeekStart())
			require.NoError(t, s.Delete())
			assert.Equal(t, []string{"B", "C", "E", "F"}, readNames(t, s))
		})

		t.Run("last record", func(t *testing.T) {
			require.NoError(t, s.SeekRecord(3))
			require.NoError(t, s.Delete())
			assert.Equal(t, []string{"B", "C", "E"}, readNames(t, s))
		})

		t.Run("at end of file", func(t *testing.T) {
			require.NoError(t, s.SeekEnd())
			err := s.Delete()
			assert.ErrorIs(t, err, ErrReadFailed)
			assert.ErrorIs(t, err, ErrNoRecord)
			assert.Equal(t, []string{"B", "C", "E"}, readNames(t, s))
		})
	})
}

func TestRecordStore_Append(t *testing.T) {
	forEachRewriteMode(t, func(t *testing.T, s *RecordStore[testObject]) {
		writeAF(t, s)

		require.NoError(t, s.SeekRecord(3))
		require.NoError(t, s.Append(obj("X")))

		assert.Equal(t, []string{"A", "B", "C", "X", "D", "E", "F"}, readNames(t, s))

		t.Run("position ends at end of file", func(t *testing.T) {
			require.NoError(t, s.SeekRecord(0))
			require.NoError(t, s.Append(obj("Y")))

			pos, err := s.Position()
			require.NoError(t, err)
			length, err := s.Length()
			require.NoError(t, err)
			assert.Equal(t, length, pos)
			assert.Equal(t, []string{"Y", "A", "B", "C", "X", "D", "E", "F"}, readNames(t, s))
		})

		t.Run("at end of file", func(t *testing.T) {
			require.NoError(t, s.SeekEnd())
			require.NoError(t, s.Append(obj("Z")))

			values := readNames(t, s)
			assert.Len(t, values, 9)
			assert.Equal(t, "Z", values[8])
		})
	})
}

func TestRecordStore_AppendPastEnd(t *testing.T) {
	forEachRewriteMode(t, func(t *testing.T, s *RecordStore[testObject]) {
		writeAF(t, s)

		require.NoError(t, s.SeekRecord(8))
		require.NoError(t, s.Append(obj("X")))

		count, err := s.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(9), count)

		length, err := s.Length()
		require.NoError(t, err)
		assert.Equal(t, int64(9*testRecordSize), length)

		v, err := s.ReadRecord(8)
		require.NoError(t, err)
		assert.Equal(t, "X", v.Name)

		// the gap is zero-filled
		gap, err := s.ReadRecord(6)
		require.NoError(t, err)
		assert.Equal(t, int32(0), gap.Age)
		assert.False(t, gap.Happy)

		values, err := s.ReadStartToEnd()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C", "D", "E", "F"}, names(values[:6]))
	})
}

func TestRecordStore_AppendEmptyFile(t *testing.T) {
	forEachRewriteMode(t, func(t *testing.T, s *RecordStore[testObject]) {
		require.NoError(t, s.Append(obj("only")))
		assert.Equal(t, []string{"only"}, readNames(t, s))
	})
}

func TestRecordStore_AtomicRewriteLeavesNoTempFiles(t *testing.T) {
	s := openTestStore(t, true)
	writeAF(t, s)

	require.NoError(t, s.SeekRecord(1))
	require.NoError(t, s.Append(obj("X")))
	require.NoError(t, s.SeekRecord(4))
	require.NoError(t, s.Delete())

	entries, err := os.ReadDir(filepath.Dir(s.FilePath()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.dat", entries[0].Name())

	// the handle follows the renamed file
	require.NoError(t, s.SeekEnd())
	require.NoError(t, s.Write(obj("G")))
	assert.Equal(t, []string{"A", "X", "B", "C", "E", "F", "G"}, readNames(t, s))
}

func TestRecordStore_AtomicRewriteKeepsFileMode(t *testing.T) {
	s := openTestStore(t, true)
	writeAF(t, s)
	require.NoError(t, os.Chmod(s.FilePath(), 0o640))

	require.NoError(t, s.SeekRecord(2))
	require.NoError(t, s.Append(obj("X")))

	info, err := os.Stat(s.FilePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	require.NoError(t, s.SeekRecord(0))
	require.NoError(t, s.Delete())

	info, err = os.Stat(s.FilePath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.Equal(t, []string{"B", "X", "C", "D", "E", "F"}, readNames(t, s))
}

func TestRecordStore_UnaddressableIndex(t *testing.T) {
	forEachRewriteMode(t, func(t *testing.T, s *RecordStore[testObject]) {
		writeAF(t, s)
		huge := int64(math.MaxInt64/testRecordSize) + 1
		wrapping := int64(323627089012448274)

		require.NoError(t, s.SeekRecord(2))

		for _, index := range []int64{huge, wrapping, math.MaxInt64} {
			err := s.SeekRecord(index)
			assert.ErrorIs(t, err, ErrPointerSeekFailed)
			assert.ErrorIs(t, err, ErrNoRecord)

			_, err = s.ReadRecord(index)
			assert.ErrorIs(t, err, ErrPointerSeekFailed)
			assert.ErrorIs(t, s.WriteRecord(index, obj("Z")), ErrPointerSeekFailed)
			assert.ErrorIs(t, s.Swap(index, 0), ErrPointerSeekFailed)
			assert.ErrorIs(t, s.Swap(0, index), ErrPointerSeekFailed)
			assert.ErrorIs(t, s.Move(index), ErrPointerSeekFailed)
			assert.ErrorIs(t, s.MoveBack(index), ErrPointerSeekFailed)
		}

		// failed seeks leave the position alone
		pos, err := s.Position()
		require.NoError(t, err)
		assert.Equal(t, int64(2*testRecordSize), pos)

		require.NoError(t, s.SeekRecord(2))
		require.NoError(t, s.Delete())

		length, err := s.Length()
		require.NoError(t, err)
		assert.Equal(t, int64(5*testRecordSize), length)
		assert.Equal(t, []string{"A", "B", "D", "E", "F"}, readNames(t, s))
	})
}

func TestRecordStore_Positioning(t *testing.T) {
	s := openTestStore(t, false)
	writeAF(t, s)

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(6*testRecordSize), pos)

	require.NoError(t, s.SeekRecord(1))
	require.NoError(t, s.Move(3))
	pos, err = s.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(4*testRecordSize), pos)

	v, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, "E", v.Name)

	require.NoError(t, s.MoveBack(2))
	v, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, "D", v.Name)

	require.NoError(t, s.Move(-4))
	v, err = s.Read()
	require.NoError(t, err)
	assert.Equal(t, "A", v.Name)

	require.NoError(t, s.SeekTo(testRecordSize+40))
	age, err := s.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(18), age)

	t.Run("negative targets fail", func(t *testing.T) {
		assert.ErrorIs(t, s.SeekTo(-1), ErrPointerSeekFailed)
		assert.ErrorIs(t, s.MoveBack(100), ErrPointerSeekFailed)
		assert.ErrorIs(t, s.SeekRecord(-2), ErrPointerSeekFailed)
	})

	t.Run("read past end", func(t *testing.T) {
		require.NoError(t, s.SeekEnd())
		_, err := s.Read()
		assert.ErrorIs(t, err, ErrReadFailed)
		assert.Equal(t, KindReadFailed, KindOf(err))
	})
}

func TestRecordStore_ReadRecordWriteRecord(t *testing.T) {
	s := openTestStore(t, false)
	writeAF(t, s)

	v, err := s.ReadRecord(4)
	require.NoError(t, err)
	assert.Equal(t, "E", v.Name)

	require.NoError(t, s.WriteRecord(0, obj("Z")))
	assert.Equal(t, []string{"Z", "B", "C", "D", "E", "F"}, readNames(t, s))

	_, err = s.ReadRecord(10)
	assert.ErrorIs(t, err, ErrReadFailed)
}

func TestRecordStore_Primitives(t *testing.T) {
	s := openTestStore(t, false)

	require.NoError(t, s.WriteText("hello"))
	require.NoError(t, s.WriteInt32(-42))
	require.NoError(t, s.WriteFloat32(1.5))
	require.NoError(t, s.WriteFloat64(-2.25))
	require.NoError(t, s.WriteBool(true))
	require.NoError(t, s.WriteByte(0xAB))

	length, err := s.Length()
	require.NoError(t, err)
	assert.Equal(t, int64(40+4+4+8+1+1), length)

	require.NoError(t, s.SeekStart())

	text, err := s.ReadText()
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	i, err := s.ReadInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-42), i)

	f32, err := s.ReadFloat32()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), f32)

	f64, err := s.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, -2.25, f64)

	b, err := s.ReadBool()
	require.NoError(t, err)
	assert.True(t, b)

	by, err := s.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), by)

	t.Run("read at end gives no value", func(t *testing.T) {
		before, err := s.Position()
		require.NoError(t, err)

		v, err := s.ReadFloat64()
		assert.ErrorIs(t, err, ErrReadFailed)
		assert.ErrorIs(t, err, ErrNoRecord)
		assert.Zero(t, v)

		after, err := s.Position()
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})
}

func TestRecordStore_PartialTrailingRecord(t *testing.T) {
	s := openTestStore(t, false)
	require.NoError(t, s.Write(obj("A")))
	require.NoError(t, s.Write(obj("B")))
	require.NoError(t, s.WriteByte(1))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	assert.Equal(t, []string{"A", "B"}, readNames(t, s))

	require.NoError(t, s.SeekRecord(2))
	_, err = s.Read()
	assert.ErrorIs(t, err, ErrReadFailed)

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(2*testRecordSize), pos)
}

func TestRecordStore_SetLength(t *testing.T) {
	s := openTestStore(t, false)
	writeAF(t, s)

	require.NoError(t, s.SetLength(2*testRecordSize))

	count, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	pos, err := s.Position()
	require.NoError(t, err)
	assert.Equal(t, int64(2*testRecordSize), pos)

	require.NoError(t, s.SetLength(4*testRecordSize))
	count, err = s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	v, err := s.ReadRecord(3)
	require.NoError(t, err)
	assert.Zero(t, v.Age)
	assert.False(t, v.Happy)

	assert.ErrorIs(t, s.SetLength(-1), ErrTruncateFailed)
}

func TestRecordStore_Iterator(t *testing.T) {
	s := openTestStore(t, false)
	writeAF(t, s)

	require.NoError(t, s.SeekRecord(2))
	it := s.Iterator()

	var got []string
	for it.Next() {
		got = append(got, it.Value().Name)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"C", "D", "E", "F"}, got)

	// exhausted iterators stay exhausted
	require.NoError(t, s.SeekStart())
	assert.False(t, it.Next())
}

func TestRecordStore_ReadHereToEnd(t *testing.T) {
	s := openTestStore(t, false)
	writeAF(t, s)

	require.NoError(t, s.SeekRecord(4))
	values, err := s.ReadHereToEnd()
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "F"}, names(values))

	values, err = s.ReadHereToEnd()
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestRecordStore_Reopen(t *testing.T) {
	config := testConfig(t, false)

	s, err := Open[testObject](config, testCodec{})
	require.NoError(t, err)
	writeAF(t, s)
	require.NoError(t, s.SeekRecord(2))
	require.NoError(t, s.Write(obj("Supposed to be C")))
	require.NoError(t, s.Close())

	s, err = Open[testObject](config, testCodec{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Swap(0, 5))
	assert.Equal(t, []string{"F", "B", "Supposed to be C", "D", "E", "A"}, readNames(t, s))
}

func TestRecordStore_SchemaMismatch(t *testing.T) {
	s, err := Open[codec.Row](Config{
		FilePath: filepath.Join(t.TempDir(), "rows.dat"),
		Logger:   logging.Discard(),
	}, codec.NewRowCodec(codec.Schema{codec.TypeText, codec.TypeInt32}))
	require.NoError(t, err)
	defer s.Close()

	err = s.Write(codec.Row{codec.Int32(1), codec.Text("swapped")})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.ErrorIs(t, err, codec.ErrSchemaMismatch)

	length, err := s.Length()
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestRecordStore_InvalidSchema(t *testing.T) {
	_, err := Open[codec.Row](Config{FilePath: filepath.Join(t.TempDir(), "x.dat")}, codec.NewRowCodec(nil))
	assert.ErrorIs(t, err, codec.ErrSchemaMismatch)
}

func TestRecordStore_Degraded(t *testing.T) {
	config := Config{
		FilePath: filepath.Join(t.TempDir(), "missing", "data.dat"),
		Logger:   logging.Discard(),
	}

	s, err := Open[testObject](config, testCodec{})
	require.Error(t, err)
	require.NotNil(t, s)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.True(t, s.Degraded())
	assert.Equal(t, testRecordSize, s.RecordSize())

	assertDegradedKinds(t, s)
	assert.ErrorIs(t, s.Close(), ErrCloseFailed)
}

func TestRecordStore_Closed(t *testing.T) {
	s, err := Open[testObject](testConfig(t, false), testCodec{})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assertDegradedKinds(t, s)

	err = s.Close()
	assert.ErrorIs(t, err, ErrCloseFailed)
	assert.ErrorIs(t, err, ErrNotOpen)
}

func assertDegradedKinds(t *testing.T, s *RecordStore[testObject]) {
	t.Helper()

	assert.ErrorIs(t, s.Write(obj("A")), ErrWriteFailed)
	assert.ErrorIs(t, s.WriteAll([]testObject{obj("A")}), ErrWriteFailed)
	assert.ErrorIs(t, s.WriteText("A"), ErrWriteFailed)
	assert.ErrorIs(t, s.WriteInt32(1), ErrWriteFailed)
	assert.ErrorIs(t, s.Append(obj("A")), ErrWriteFailed)
	assert.ErrorIs(t, s.Delete(), ErrWriteFailed)

	_, err := s.Read()
	assert.ErrorIs(t, err, ErrReadFailed)
	_, err = s.ReadBool()
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.ErrorIs(t, s.Swap(0, 1), ErrReadFailed)

	_, err = s.Position()
	assert.ErrorIs(t, err, ErrPointerQueryFailed)
	_, err = s.Length()
	assert.ErrorIs(t, err, ErrPointerQueryFailed)
	_, err = s.Count()
	assert.ErrorIs(t, err, ErrPointerQueryFailed)

	assert.ErrorIs(t, s.SeekTo(0), ErrPointerSeekFailed)
	assert.ErrorIs(t, s.SeekStart(), ErrPointerSeekFailed)
	assert.ErrorIs(t, s.SeekEnd(), ErrPointerSeekFailed)
	assert.ErrorIs(t, s.SeekRecord(1), ErrPointerSeekFailed)
	assert.ErrorIs(t, s.Move(1), ErrPointerSeekFailed)

	assert.ErrorIs(t, s.SetLength(0), ErrTruncateFailed)

	it := s.Iterator()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrPointerQueryFailed)
}

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
	errs int
}

func (o *recordingObserver) ObserveOperation(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ops = append(o.ops, op)
	if err != nil {
		o.errs++
	}
}

func TestRecordStore_Observer(t *testing.T) {
	observer := &recordingObserver{}
	config := testConfig(t, false)
	config.Observer = observer

	s, err := Open[testObject](config, testCodec{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write(obj("A")))
	require.NoError(t, s.SeekStart())
	require.NoError(t, s.Append(obj("B")))
	_, err = s.Read()
	require.Error(t, err)
	require.NoError(t, s.Swap(0, 1))

	assert.Equal(t, []string{"write", "append", "read", "swap"}, observer.ops)
	assert.Equal(t, 1, observer.errs)
}
