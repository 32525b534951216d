package quizdoc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"quizforge/internal/quizdoc"
)

func TestTransportRoundTrip(t *testing.T) {
	doc, err := quizdoc.Parse([]byte(validQuizJSON))
	require.NoError(t, err)

	param, err := quizdoc.EncodeParam(doc)
	require.NoError(t, err)
	require.NotContains(t, param, `"`, "parameter must be percent-encoded")

	got, err := quizdoc.DecodeParam(param)
	require.NoError(t, err)
	require.Equal(t, doc, got)
}

func TestDecodeParam_Failures(t *testing.T) {
	tests := map[string]string{
		"empty parameter":        "",
		"blank parameter":        "   ",
		"broken percent escape":  "%zz",
		"not JSON after decode":  "hello%20world",
		"valid JSON, bad schema": `%7B%22quizTitle%22%3A%22T%22%2C%22questions%22%3A%5B%5D%7D`,
	}

	for name, param := range tests {
		param := param
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc, err := quizdoc.DecodeParam(param)
			require.Nil(t, doc)

			var de *quizdoc.DecodeError
			require.ErrorAs(t, err, &de, "every handoff failure must surface as a decode error")
		})
	}
}

func TestDecodeParam_RevalidatesTamperedParameter(t *testing.T) {
	doc, err := quizdoc.Parse([]byte(validQuizJSON))
	require.NoError(t, err)

	// Simulate a user editing the URL: strip the questions.
	doc.Questions = nil
	param, err := quizdoc.EncodeParam(doc)
	require.NoError(t, err)

	got, err := quizdoc.DecodeParam(param)
	require.Nil(t, got)
	require.Error(t, err)
}
