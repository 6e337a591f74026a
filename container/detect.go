package container

import "errors"

// Open loads a container file regardless of its physical encoding. It
// attempts the dense reader first and fails over to the reference
// reader only when the dense reader reports the reference-encoding
// signature; any other error propagates unchanged. Missing files stay
// detectable with errors.Is(err, fs.ErrNotExist).
func Open(path string) (map[string]Value, Encoding, error) {
	vars, err := OpenDense(path)
	if err == nil {
		return vars, EncodingDense, nil
	}
	if !errors.Is(err, ErrUnsupportedEncoding) {
		return nil, 0, err
	}

	vars, err = OpenReference(path)
	if err != nil {
		return nil, 0, err
	}
	return vars, EncodingReference, nil
}
