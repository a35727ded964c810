package session

import "crypto/cipher"

// cfb8 implements the 8-bit-segment CFB stream mode the Minecraft login
// handshake specifies. The standard library's cipher.NewCFBEncrypter uses
// a full-block segment size, not the single-byte feedback Minecraft's
// encryption request/response pair requires, so this is a small,
// protocol-accurate stream built directly on crypto/aes's block cipher —
// no example in the pack implements this exact mode either.
type cfb8 struct {
	block   cipher.Block
	shift   []byte
	tmp     []byte
	decrypt bool
}

func newCFB8(block cipher.Block, iv []byte, decrypt bool) cipher.Stream {
	shift := make([]byte, len(iv))
	copy(shift, iv)
	return &cfb8{
		block:   block,
		shift:   shift,
		tmp:     make([]byte, block.BlockSize()),
		decrypt: decrypt,
	}
}

func (s *cfb8) XORKeyStream(dst, src []byte) {
	bs := s.block.BlockSize()
	for i := range src {
		s.block.Encrypt(s.tmp, s.shift)
		out := src[i] ^ s.tmp[0]

		// Feedback is always the ciphertext byte: when encrypting that is
		// `out`; when decrypting it is the input byte itself.
		var feedbackByte byte
		if s.decrypt {
			feedbackByte = src[i]
		} else {
			feedbackByte = out
		}
		dst[i] = out

		copy(s.shift, s.shift[1:bs])
		s.shift[bs-1] = feedbackByte
	}
}
