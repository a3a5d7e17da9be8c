package codec

import "math/big"

// PackPair serializes two integers back to back.
func PackPair(a, b *big.Int) ([]byte, error) {
	return FrameAll(a, b)
}

// UnpackPair reads two framed integers and returns them with the remaining bytes.
func UnpackPair(data []byte) (*big.Int, *big.Int, []byte, error) {
	a, rest, err := Unframe(data)
	if err != nil {
		return nil, nil, nil, err
	}

	b, rest, err := Unframe(rest)
	if err != nil {
		return nil, nil, nil, err
	}

	return a, b, rest, nil
}
