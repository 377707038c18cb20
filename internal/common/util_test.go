package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRandByteArray_Basic(t *testing.T) {
	const n = 24
	buf := GenerateRandByteArray(n)
	if len(buf) != n {
		t.Fatalf("expected length %d, got %d", n, len(buf))
	}
}

func TestGenerateRandByteArray_EntropyHint(t *testing.T) {
	a := GenerateRandByteArray(32)
	b := GenerateRandByteArray(32)
	if string(a) == string(b) {
		t.Logf("warning: two GenerateRandByteArray(32) results are identical; extremely unlikely")
	}
}

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	assert.Equal(t, []byte{0, 0, 0, 0, 0}, buf)
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestOutcome_Kinds(t *testing.T) {
	tests := []struct {
		o    Outcome
		kind Kind
	}{
		{NameTooShort, KindValidation},
		{KeyTooLong, KindValidation},
		{UserNotFound, KindNotFound},
		{KeyMissing, KindNotFound},
		{KeyInUse, KindState},
		{AlreadyLogged, KindState},
		{WrongPassword, KindAuth},
		{GenericError, KindAuth},
		{LoggedIn, KindOK},
		{UnknownRequest, KindUnknown},
		{Outcome("something else"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(string(tt.o), func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.o.Kind())
		})
	}
	assert.True(t, Registered.OK())
	assert.False(t, KeyExpired.OK())
	assert.Equal(t, "state", KeyExpired.Kind().String())
	assert.Equal(t, "fault", KindFault.String())
}
