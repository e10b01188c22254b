package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkillNormalizer(t *testing.T) {
	t.Parallel()

	n := NewSkillNormalizer(nil)
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "synonyms and separators", raw: "Python3, JS/TS", want: "python, javascript, typescript"},
		{name: "dedupe after canonicalization", raw: "py | python | PYTHON3", want: "python"},
		{name: "order preserved", raw: "Go;Docker;Kubernetes", want: "go, docker, kubernetes"},
		{name: "meaningful symbols kept", raw: "C++, C#, .NET", want: "c++, c#, .net"},
		{name: "punctuation stripped", raw: "(AWS)!, [GCP]", want: "aws, gcp"},
		{name: "empty tokens skipped", raw: ",,  /|; ", want: ""},
		{name: "blank input", raw: "   ", want: ""},
		{name: "full width folded", raw: "ＰＹＴＨＯＮ", want: "python"},
		{name: "korean kept", raw: "데이터분석, 머신러닝", want: "데이터분석, 머신러닝"},
		{name: "whitespace separates", raw: "Spring Boot, Deep Learning", want: "spring, boot, deep, learning"},
		{name: "whitespace only list", raw: "Python3  Docker\tgo", want: "python, docker, go"},
		{name: "fused forms still map", raw: "machine-learning MachineLearning", want: "ml"},
		{name: "ideographic space", raw: "데이터분석\u3000머신러닝", want: "데이터분석, 머신러닝"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, n.Normalize(tc.raw))
		})
	}
}

func TestSkillNormalizerIdempotent(t *testing.T) {
	t.Parallel()

	n := NewSkillNormalizer(nil)
	for _, raw := range []string{"Python3, JS/TS", "C++ | Go | go", "Node.js; PostgreSQL"} {
		once := n.Normalize(raw)
		assert.Equal(t, once, n.Normalize(once), raw)
	}
}

func TestSkillNormalizerExtraSynonyms(t *testing.T) {
	t.Parallel()

	n := NewSkillNormalizer(map[string]string{"Golang": "go", " ": "ignored"})
	assert.Equal(t, "go, python", n.Normalize("golang, go, py"))
}
