// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package acquisition

import (
	"fmt"
	"strconv"

	nmea "github.com/adrianmo/go-nmea"
)

// TypeEOG is the data type of the proprietary $PEOG sentence:
//
//	$PEOG,<sequence>,<channel A uV>,<channel B uV>*hh
const TypeEOG = "EOG"

// EOGSentence is one sample carried in NMEA-0183 framing.
type EOGSentence struct {
	nmea.BaseSentence
	Sequence int64
	A        float64
	B        float64
}

func init() {
	nmea.MustRegisterParser(TypeEOG, func(s nmea.BaseSentence) (nmea.Sentence, error) {
		p := nmea.NewParser(s)
		return EOGSentence{
			BaseSentence: s,
			Sequence:     p.Int64(0, "sequence"),
			A:            p.Float64(1, "channel a"),
			B:            p.Float64(2, "channel b"),
		}, p.Err()
	})
}

// ParseEOGSentence parses one line, rejecting other sentence types.
func ParseEOGSentence(line string) (EOGSentence, error) {
	s, err := nmea.Parse(line)
	if err != nil {
		return EOGSentence{}, err
	}
	eogs, ok := s.(EOGSentence)
	if !ok {
		return EOGSentence{}, fmt.Errorf("unexpected sentence type %s", s.DataType())
	}
	return eogs, nil
}

// FormatEOGSentence renders a sample with its checksum.
func FormatEOGSentence(seq int64, a, b float64) string {
	body := "PEOG," + strconv.FormatInt(seq, 10) + "," +
		strconv.FormatFloat(a, 'f', 3, 64) + "," +
		strconv.FormatFloat(b, 'f', 3, 64)
	return "$" + body + "*" + nmea.Checksum(body)
}
