package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignKnownVector(t *testing.T) {
	// RFC 4231 test case 2
	sig := Sign("Jefe", []byte("what do ya want for nothing?"))
	assert.Equal(t, "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843", sig)
}

func TestVerify(t *testing.T) {
	payload := PaymentPayload("order_1", "pay_1")
	assert.Equal(t, "order_1|pay_1", string(payload))

	sig := Sign("secret", payload)
	assert.True(t, Verify("secret", payload, sig))
	assert.False(t, Verify("other", payload, sig))
	assert.False(t, Verify("secret", payload, ""))
	assert.False(t, Verify("", payload, sig))
}

func TestVerifyRejectsSingleBitFlip(t *testing.T) {
	payload := []byte(`{"event":"order.paid"}`)
	sig := []byte(Sign("whsec", payload))
	for i := range sig {
		tampered := make([]byte, len(sig))
		copy(tampered, sig)
		tampered[i] ^= 0x01
		assert.False(t, Verify("whsec", payload, string(tampered)), "position %d", i)
	}
}
