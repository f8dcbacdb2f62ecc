package value

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value Value
		kind  Kind
		want  string
	}{
		{name: "text", value: Text("Hello Redis!"), kind: KindText, want: "Hello Redis!"},
		{name: "empty text", value: Text(""), kind: KindText, want: ""},
		{name: "zero value", value: Value{}, kind: KindText, want: ""},
		{name: "bytes", value: Bytes([]byte("bytes data")), kind: KindBytes, want: "bytes data"},
		{name: "binary", value: Bytes([]byte{0x00, 0xff, 0x10}), kind: KindBytes, want: "\x00\xff\x10"},
		{name: "int", value: Int(123), kind: KindInt, want: "123"},
		{name: "negative int", value: Int(-42), kind: KindInt, want: "-42"},
		{name: "max int", value: Int(math.MaxInt64), kind: KindInt, want: "9223372036854775807"},
		{name: "float", value: Float(45.67), kind: KindFloat, want: "45.67"},
		{name: "integral float", value: Float(3), kind: KindFloat, want: "3"},
		{name: "large float", value: Float(1e21), kind: KindFloat, want: "1e+21"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.kind, tt.value.Kind())
			assert.Equal(t, []byte(tt.want), tt.value.Encode())
		})
	}
}

func TestBytes_CopiesInput(t *testing.T) {
	t.Parallel()

	src := []byte("abc")
	v := Bytes(src)
	src[0] = 'x'

	assert.Equal(t, []byte("abc"), v.Encode())

	enc := v.Encode()
	enc[0] = 'y'
	assert.Equal(t, []byte("abc"), v.Encode())
}

func TestValue_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"Hello"`, Text("Hello").String())
	assert.Equal(t, `b"bytes data"`, Bytes([]byte("bytes data")).String())
	assert.Equal(t, "42", Int(42).String())
	assert.Equal(t, "45.67", Float(45.67).String())
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "bytes", KindBytes.String())
	assert.Equal(t, "int", KindInt.String())
	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	s, err := DecodeText(Text("héllo").Encode())
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)

	b, err := DecodeBytes(Bytes([]byte{1, 2, 3}).Encode())
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, b)

	i, err := DecodeInt(Int(-7).Encode())
	require.NoError(t, err)
	assert.Equal(t, int64(-7), i)

	f, err := DecodeFloat(Float(45.67).Encode())
	require.NoError(t, err)
	assert.InDelta(t, 45.67, f, 1e-12)

	f, err = DecodeFloat(Int(12).Encode())
	require.NoError(t, err)
	assert.InDelta(t, 12.0, f, 1e-12)
}

func TestDecode_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		run  func() error
		kind Kind
	}{
		{name: "int from text", run: func() error { _, err := DecodeInt([]byte("Hello")); return err }, kind: KindInt},
		{name: "int from float", run: func() error { _, err := DecodeInt([]byte("45.67")); return err }, kind: KindInt},
		{name: "int overflow", run: func() error { _, err := DecodeInt([]byte("99999999999999999999")); return err }, kind: KindInt},
		{name: "int empty", run: func() error { _, err := DecodeInt(nil); return err }, kind: KindInt},
		{name: "float from text", run: func() error { _, err := DecodeFloat([]byte("abc")); return err }, kind: KindFloat},
		{name: "text invalid utf8", run: func() error { _, err := DecodeText([]byte{0xff, 0xfe}); return err }, kind: KindText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.run()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)

			var decErr *DecodeError
			require.ErrorAs(t, err, &decErr)
			assert.Equal(t, tt.kind, decErr.Kind)
		})
	}
}

func TestDecodeError_DoesNotLeakContent(t *testing.T) {
	t.Parallel()

	_, err := DecodeInt([]byte("secret-token"))
	require.Error(t, err)

	assert.NotContains(t, err.Error(), "secret-token")
	assert.True(t, errors.Is(err, strconv.ErrSyntax))
}

func TestDecodeError_Error(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "decode int", (&DecodeError{Kind: KindInt}).Error())
	assert.Equal(t, "decode text: boom", (&DecodeError{Kind: KindText, Cause: errors.New("boom")}).Error())
	assert.True(t, errors.Is(&DecodeError{}, &DecodeError{}))
	assert.False(t, errors.Is(&DecodeError{}, errors.New("other")))
}
