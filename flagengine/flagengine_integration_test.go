package flagengine_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tailscale/hujson"

	"github.com/featurekit/featurekit-go/flagengine"
	"github.com/featurekit/featurekit-go/flagengine/contexts"
	"github.com/featurekit/featurekit-go/flagengine/toggles"
)

const TestDataDir = "./testdata"

func TestEngine(t *testing.T) {
	t.Parallel()

	files, err := filepath.Glob(filepath.Join(TestDataDir, "*.jsonc"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "No test case files found in %s", TestDataDir)

	for _, testFile := range files {
		testName := strings.TrimSuffix(filepath.Base(testFile), filepath.Ext(testFile))

		t.Run(testName, func(t *testing.T) {
			t.Parallel()

			caseData, err := os.ReadFile(testFile)
			require.NoError(t, err)

			// Standardise .jsonc files to standard JSON
			ast, err := hujson.Parse(caseData)
			require.NoError(t, err)
			ast.Standardize()
			caseData = ast.Pack()

			var testCase struct {
				Document json.RawMessage `json:"document"`
				Cases    []struct {
					Description string                      `json:"description"`
					Toggle      string                      `json:"toggle"`
					Context     contexts.Context            `json:"context"`
					Result      flagengine.EvaluationResult `json:"result"`
				} `json:"cases"`
			}
			require.NoError(t, json.Unmarshal(caseData, &testCase))

			doc, err := toggles.Parse(testCase.Document)
			require.NoError(t, err)
			require.Empty(t, doc.Warnings())

			for i, c := range testCase.Cases {
				actual, ok := flagengine.Resolve(doc, c.Toggle, &c.Context, nil)
				require.True(t, ok, "case %d: toggle %q not found", i, c.Toggle)
				assert.Equal(t, c.Result, actual, "case %d: %s", i, c.Description)
			}
		})
	}
}
