// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package json

import (
	stdjson "encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUint32(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    Uint32
		expectedErr error
	}{
		{
			name:     "quoted",
			input:    `"4294967295"`,
			expected: 4294967295,
		},
		{
			name:     "bare",
			input:    `7`,
			expected: 7,
		},
		{
			name:     "null keeps value",
			input:    Null,
			expected: 3,
		},
		{
			name:        "overflow",
			input:       `"4294967296"`,
			expected:    4294967295,
			expectedErr: strconv.ErrRange,
		},
		{
			name:        "not a number",
			input:       `"x"`,
			expectedErr: strconv.ErrSyntax,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			u := Uint32(3)
			err := u.UnmarshalJSON([]byte(test.input))
			require.ErrorIs(err, test.expectedErr)
			require.Equal(test.expected, u)
		})
	}
}

func TestUintMarshal(t *testing.T) {
	require := require.New(t)

	b, err := stdjson.Marshal(struct {
		A Uint32 `json:"a"`
		B Uint64 `json:"b"`
	}{A: 12, B: 1 << 40})
	require.NoError(err)
	require.JSONEq(`{"a":"12","b":"1099511627776"}`, string(b))

	var u Uint64
	require.NoError(u.UnmarshalJSON([]byte(`"1099511627776"`)))
	require.Equal(Uint64(1<<40), u)
}
