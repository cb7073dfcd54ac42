package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetaKeyRoundTrip(t *testing.T) {
	raw := EncodeMetaKey(3, []byte("foo"))
	dbid, key, err := DecodeMetaKey(raw)
	require.NoError(t, err)
	require.Equal(t, 3, dbid)
	require.Equal(t, []byte("foo"), key)
}

func TestMetaValueRoundTrip(t *testing.T) {
	m := Meta{ObjectType: ObjectHash, Expire: 123456, Version: 7, Extend: []byte{0x01, 0x02}}
	raw := EncodeMetaValue(m)
	got, err := DecodeMetaValue(raw)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestMetaValueRoundTripNoExtend(t *testing.T) {
	m := Meta{ObjectType: ObjectString, Expire: 0, Version: 1}
	raw := EncodeMetaValue(m)
	got, err := DecodeMetaValue(raw)
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestDataKeyRoundTrip(t *testing.T) {
	raw := EncodeDataKey(1, []byte("h"), 9, []byte("field2"))
	dbid, key, version, subkey, err := DecodeDataKey(raw)
	require.NoError(t, err)
	require.Equal(t, 1, dbid)
	require.Equal(t, []byte("h"), key)
	require.Equal(t, uint64(9), version)
	require.Equal(t, []byte("field2"), subkey)
}

func TestDecodeMetaKeyTruncated(t *testing.T) {
	_, _, err := DecodeMetaKey([]byte{0, 0})
	require.Error(t, err)
}

func TestDecodeDataKeyTruncated(t *testing.T) {
	_, _, _, _, err := DecodeDataKey([]byte{0, 0, 0, 0, 0, 0, 0, 5})
	require.Error(t, err)
}
