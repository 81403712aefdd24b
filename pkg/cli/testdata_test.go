package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const petsYAML = `openapi: 3.1.0
info:
  title: Pets
  version: "1.0"
paths:
  /pets:
    get:
      operationId: listPets
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
                properties:
                  id: {type: integer}
                  name: {type: string}
`

const brokenYAML = `openapi: 3.1.0
info: {title: Broken, version: "1"}
paths:
  /a:
    get:
      responses:
        "200": {$ref: "#/components/responses/Missing"}
`

type testEnv struct {
	*Env
	out  *bytes.Buffer
	logs *bytes.Buffer
}

func newTestEnv() *testEnv {
	out, logs := &bytes.Buffer{}, &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(logs)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true, DisableColors: true})
	return &testEnv{
		Env:  &Env{Out: out, Log: log, Client: DefaultEnv().Client},
		out:  out,
		logs: logs,
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
