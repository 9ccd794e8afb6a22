package crt

// ImagePackets builds the write-ready upload sequence for one button
// image: a BAT header announcing total size and target button, the
// encoded payload in DataSize chunks (the final chunk zero-padded), and
// the STP terminator. Every element is a full WriteSize write.
//
// The sequence is built fresh on every call and carries no state;
// pacing between writes is the caller's responsibility.
func ImagePackets(buttonID byte, img []byte) ([][]byte, error) {
	header, err := ImageHeader(len(img), buttonID)
	if err != nil {
		return nil, err
	}

	packets := make([][]byte, 0, (len(img)+DataSize-1)/DataSize+2)

	p, err := Report(header)
	if err != nil {
		return nil, err
	}
	packets = append(packets, p)

	for off := 0; off < len(img); off += DataSize {
		end := min(off+DataSize, len(img))
		p, err := Report(img[off:end])
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
	}

	p, err = Report(Stop())
	if err != nil {
		return nil, err
	}
	packets = append(packets, p)

	return packets, nil
}
