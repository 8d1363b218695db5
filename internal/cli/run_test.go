package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillrouter/internal/cli"
	"skillrouter/internal/registry"
)

// fixtureBodies holds one instruction document per fixture skill.
var fixtureBodies = map[string]string{
	"code-review":    "# Code Review\n\nRead the diff hunk by hunk. Flag correctness first, style last.\n",
	"auth-hardening": "# Auth Hardening\n\nPrefer TOTP over SMS. Rate-limit login attempts.\n",
	"authentication": "# Authentication\n\nUse a vetted session library. Never roll your own crypto.\n",
	"rate-limiting":  "# Rate Limiting\n\nReturn Retry-After. Back off exponentially on 429.\n",
	"unit-testing":   "# Unit Testing\n\nOne behavior per test. Name tests after the behavior.\n",
	"tdd":            "# TDD\n\nRed, green, refactor. Write the failing test first.\n",
}

// buildFixtureRegistry writes a six-skill local registry mirror covering the
// bilingual, negative-keyword, and ambiguity paths.
func buildFixtureRegistry(t *testing.T) string {
	t.Helper()

	root := t.TempDir()

	hash := func(id string) string {
		return registry.HashHex([]byte(fixtureBodies[id]))
	}

	indexJSON := fmt.Sprintf(`{
		"generated_at": "2026-08-01T00:00:00Z",
		"skills": [
			{
				"id": "code-review",
				"name": "Code Review",
				"category": "coding",
				"short_description": "Review code quality and pull requests",
				"tags": ["review", "quality", "pr"],
				"trigger_keywords": {
					"en": ["code review", "pull request", "review my code"],
					"zh": ["审查", "代码"]
				},
				"intent_patterns": {
					"en": ["review\\s+.*\\b(code|pull request|pr)\\b", "code\\s+review"],
					"zh": ["审查.*代码"]
				},
				"body_path": "skills/code-review/SKILL.md",
				"body_hash": "%s"
			},
			{
				"id": "auth-hardening",
				"name": "Auth Hardening",
				"category": "security",
				"short_description": "Strengthen login security with 2FA and MFA",
				"tags": ["security", "2fa", "mfa", "login"],
				"trigger_keywords": {"en": ["2fa", "mfa", "harden", "login security"]},
				"intent_patterns": {
					"en": ["(add|enable|set\\s*up)\\s+(2fa|mfa|two.factor)", "harden\\s+.*login"]
				},
				"body_path": "skills/auth-hardening/SKILL.md",
				"body_hash": "%s"
			},
			{
				"id": "authentication",
				"name": "Authentication",
				"category": "security",
				"short_description": "Implement user authentication and sessions",
				"tags": ["security", "login", "sessions"],
				"trigger_keywords": {"en": ["login", "authentication", "sign in"]},
				"intent_patterns": {"en": ["implement\\s+.*auth"]},
				"negative_keywords": {"en": ["2fa", "mfa", "harden"]},
				"body_path": "skills/authentication/SKILL.md",
				"body_hash": "%s"
			},
			{
				"id": "rate-limiting",
				"name": "Rate Limiting",
				"category": "backend",
				"short_description": "Handle API rate limits and 429 responses",
				"tags": ["api", "rate", "limit", "429"],
				"trigger_keywords": {"en": ["429", "too many requests", "rate limit", "throttling"]},
				"intent_patterns": {"en": ["rate.?limit(ing|er)?", "too\\s+many\\s+requests"]},
				"body_path": "skills/rate-limiting/SKILL.md",
				"body_hash": "%s"
			},
			{
				"id": "unit-testing",
				"name": "Unit Testing",
				"category": "testing",
				"short_description": "Write unit tests with good coverage",
				"tags": ["testing", "tests", "coverage"],
				"trigger_keywords": {"en": ["write tests", "unit test", "tests"]},
				"intent_patterns": {"en": ["write\\s+tests?\\b"]},
				"body_path": "skills/unit-testing/SKILL.md",
				"body_hash": "%s"
			},
			{
				"id": "tdd",
				"name": "TDD",
				"category": "testing",
				"short_description": "Write tests first with the test driven development cycle",
				"tags": ["testing", "tests"],
				"trigger_keywords": {"en": ["tdd", "test driven", "red green refactor", "write tests"]},
				"intent_patterns": {"en": ["write\\s+tests?\\b"]},
				"body_path": "skills/tdd/SKILL.md",
				"body_hash": "%s"
			}
		]
	}`,
		hash("code-review"), hash("auth-hardening"), hash("authentication"),
		hash("rate-limiting"), hash("unit-testing"), hash("tdd"))

	require.NoError(t, os.WriteFile(filepath.Join(root, "index.json"), []byte(indexJSON), 0o644))

	for id, body := range fixtureBodies {
		dir := filepath.Join(root, "skills", id)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(body), 0o644))
	}

	return root
}

// fixtureEnv pins every directory the router touches into temp space.
func fixtureEnv(t *testing.T, registryRoot string) map[string]string {
	t.Helper()

	return map[string]string{
		"HOME":                       t.TempDir(),
		"XDG_CONFIG_HOME":            t.TempDir(),
		"XDG_CACHE_HOME":             t.TempDir(),
		"SKILL_ROUTER_REGISTRY_KIND": "local",
		"SKILL_ROUTER_REGISTRY_URL":  registryRoot,
	}
}

func runHook(t *testing.T, env map[string]string, stdin string) (stdout, stderr string, code int) {
	t.Helper()

	var out, errOut bytes.Buffer

	code = cli.Run(strings.NewReader(stdin), &out, &errOut, []string{"skill-router"}, env)

	return out.String(), errOut.String(), code
}

func promptInput(prompt string) string {
	data, _ := json.Marshal(map[string]string{"prompt": prompt})

	return string(data)
}

// decodeMessage unwraps the systemMessage envelope from hook stdout.
func decodeMessage(t *testing.T, stdout string) string {
	t.Helper()

	var envelope struct {
		SystemMessage string `json:"systemMessage"`
	}

	require.NoError(t, json.Unmarshal([]byte(stdout), &envelope))

	return envelope.SystemMessage
}

func TestRun_HookScenarios(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		prompt      string
		wantSkill   string // empty means no injection at all
		wantHeader  string
		wantBody    string
		wantNote    string
		forbidNotes bool
	}{
		{
			name:        "EnglishCodeReview",
			prompt:      "Help me do a code review of this pull request",
			wantSkill:   "code-review",
			wantHeader:  "[skill-router] Automatically loaded skill: **Code Review** (category: coding, score: 62)",
			wantBody:    "Read the diff hunk by hunk.",
			forbidNotes: true,
		},
		{
			name:        "ChineseCodeReview",
			prompt:      "帮我审查一下这段代码的质量",
			wantSkill:   "code-review",
			wantHeader:  "[skill-router] Automatically loaded skill: **Code Review** (category: coding, score: 39)",
			wantBody:    "Read the diff hunk by hunk.",
			forbidNotes: true,
		},
		{
			name:       "NegativeKeywordsRedirect",
			prompt:     "Add 2FA to harden our login",
			wantSkill:  "auth-hardening",
			wantHeader: "[skill-router] Automatically loaded skill: **Auth Hardening** (category: security, score: 63)",
			wantBody:   "Prefer TOTP over SMS.",
			// "authentication" is vetoed by its negative keywords and must
			// not even surface as the ambiguity runner-up.
			forbidNotes: true,
		},
		{
			name:      "NoMatchStaysSilent",
			prompt:    "What time is it?",
			wantSkill: "",
		},
		{
			name:        "RateLimitTriggers",
			prompt:      "429 Too Many Requests error from my API",
			wantSkill:   "rate-limiting",
			wantHeader:  "[skill-router] Automatically loaded skill: **Rate Limiting** (category: backend, score: 50)",
			wantBody:    "Return Retry-After.",
			forbidNotes: true,
		},
		{
			name:       "AmbiguousWinnerGetsNote",
			prompt:     "Write tests for this function",
			wantSkill:  "unit-testing",
			wantHeader: "[skill-router] Automatically loaded skill: **Unit Testing** (category: testing, score: 48)",
			wantBody:   "One behavior per test.",
			wantNote:   "[skill-router] Note: also considered TDD (score: 43).",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			env := fixtureEnv(t, buildFixtureRegistry(t))

			stdout, _, code := runHook(t, env, promptInput(testCase.prompt))
			require.Zero(t, code)

			if testCase.wantSkill == "" {
				assert.Empty(t, stdout)

				return
			}

			msg := decodeMessage(t, stdout)
			assert.Contains(t, msg, testCase.wantHeader)
			assert.Contains(t, msg, "--- BEGIN SKILL INSTRUCTIONS ---")
			assert.Contains(t, msg, testCase.wantBody)
			assert.Contains(t, msg, "--- END SKILL INSTRUCTIONS ---")

			if testCase.wantNote != "" {
				assert.Contains(t, msg, testCase.wantNote)
			}

			if testCase.forbidNotes {
				assert.NotContains(t, msg, "[skill-router] Note:")
			}
		})
	}
}

func TestRun_Hook_AlwaysExitsZero(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		env   func(t *testing.T) map[string]string
		stdin string
	}{
		{
			name:  "MalformedStdin",
			env:   func(t *testing.T) map[string]string { return fixtureEnv(t, buildFixtureRegistry(t)) },
			stdin: "this is not json",
		},
		{
			name:  "EmptyStdin",
			env:   func(t *testing.T) map[string]string { return fixtureEnv(t, buildFixtureRegistry(t)) },
			stdin: "",
		},
		{
			name: "InvalidConfig",
			env: func(t *testing.T) map[string]string {
				env := fixtureEnv(t, buildFixtureRegistry(t))
				env["SKILL_ROUTER_REGISTRY_KIND"] = "ftp"

				return env
			},
			stdin: promptInput("Help me do a code review of this pull request"),
		},
		{
			name: "UnreachableRegistryNoCache",
			env: func(t *testing.T) map[string]string {
				env := fixtureEnv(t, t.TempDir())
				env["SKILL_ROUTER_REGISTRY_KIND"] = "http"
				env["SKILL_ROUTER_REGISTRY_URL"] = "http://127.0.0.1:1"
				env["SKILL_ROUTER_FETCH_TIMEOUT_MS"] = "200"

				return env
			},
			stdin: promptInput("Help me do a code review of this pull request"),
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			stdout, _, code := runHook(t, testCase.env(t), testCase.stdin)
			assert.Zero(t, code)
			assert.Empty(t, stdout)
		})
	}
}

func TestRun_Hook_Deterministic(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, buildFixtureRegistry(t))
	input := promptInput("Write tests for this function")

	first, _, code := runHook(t, env, input)
	require.Zero(t, code)
	require.NotEmpty(t, first)

	second, _, code := runHook(t, env, input)
	require.Zero(t, code)
	assert.Equal(t, first, second)
}

func TestRun_Hook_ThresholdSuppressesWeakMatches(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, buildFixtureRegistry(t))
	env["SKILL_ROUTER_THRESHOLD"] = "90"

	stdout, _, code := runHook(t, env, promptInput("Help me do a code review of this pull request"))
	assert.Zero(t, code)
	assert.Empty(t, stdout)
}

func TestRun_Hook_StaleCacheServesOffline(t *testing.T) {
	t.Parallel()

	registryRoot := buildFixtureRegistry(t)
	env := fixtureEnv(t, registryRoot)

	// Warm the cache, then cut the registry over to a dead endpoint.
	var out, errOut bytes.Buffer
	require.Zero(t, cli.Run(strings.NewReader(""), &out, &errOut,
		[]string{"skill-router", "refresh", "--quiet"}, env))

	// Backdate the cached index so the fresh tier misses.
	cacheFile := filepath.Join(env["XDG_CACHE_HOME"], "skill-router", "index.json")
	data, err := os.ReadFile(cacheFile)
	require.NoError(t, err)

	var cached map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &cached))
	cached["fetched_at"] = json.RawMessage("1")

	stale, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cacheFile, stale, 0o644))

	env["SKILL_ROUTER_REGISTRY_KIND"] = "http"
	env["SKILL_ROUTER_REGISTRY_URL"] = "http://127.0.0.1:1"
	env["SKILL_ROUTER_FETCH_TIMEOUT_MS"] = "200"

	// Seed the body cache the way a prior successful route would have;
	// refresh only caches the index.
	bodiesDir := filepath.Join(env["XDG_CACHE_HOME"], "skill-router", "bodies")
	require.NoError(t, os.MkdirAll(bodiesDir, 0o755))

	body := fixtureBodies["code-review"]
	bodyFile := filepath.Join(bodiesDir,
		"code-review."+registry.HashHex([]byte(body))+".txt")
	require.NoError(t, os.WriteFile(bodyFile, []byte(body), 0o644))

	stdout, _, code := runHook(t, env, promptInput("Help me do a code review of this pull request"))
	require.Zero(t, code)

	msg := decodeMessage(t, stdout)
	assert.Contains(t, msg, "**Code Review**")
	assert.Contains(t, msg, "Read the diff hunk by hunk.")
}

func TestRun_Hook_DebugGoesToStderrOnly(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, buildFixtureRegistry(t))
	env["SKILL_ROUTER_DEBUG"] = "1"

	stdout, stderr, code := runHook(t, env, promptInput("What time is it?"))
	assert.Zero(t, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "[skill-router][debug] ")
}

func TestRun_RefreshAndCache(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, buildFixtureRegistry(t))

	var out, errOut bytes.Buffer
	code := cli.Run(strings.NewReader(""), &out, &errOut, []string{"skill-router", "refresh"}, env)
	require.Zero(t, code, "stderr: %s", errOut.String())
	assert.Equal(t, "fetched index: 6 skills (generated_at 2026-08-01T00:00:00Z)\n", out.String())

	out.Reset()
	code = cli.Run(strings.NewReader(""), &out, &errOut, []string{"skill-router", "cache"}, env)
	require.Zero(t, code)
	assert.Contains(t, out.String(), "index_cached=true\n")
	assert.Contains(t, out.String(), "index_skills=6\n")
	assert.Contains(t, out.String(), "index_freshness=fresh\n")
	assert.Contains(t, out.String(), "body_count=0\n")
}

func TestRun_Refresh_Quiet(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, buildFixtureRegistry(t))

	var out, errOut bytes.Buffer
	code := cli.Run(strings.NewReader(""), &out, &errOut,
		[]string{"skill-router", "refresh", "--quiet"}, env)
	require.Zero(t, code)
	assert.Empty(t, out.String())
}

func TestRun_Refresh_UnreachableFails(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, t.TempDir())
	env["SKILL_ROUTER_REGISTRY_KIND"] = "http"
	env["SKILL_ROUTER_REGISTRY_URL"] = "http://127.0.0.1:1"
	env["SKILL_ROUTER_FETCH_TIMEOUT_MS"] = "200"

	var out, errOut bytes.Buffer
	code := cli.Run(strings.NewReader(""), &out, &errOut, []string{"skill-router", "refresh"}, env)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "error: refreshing index:")
}

func TestRun_Cache_JSON(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, buildFixtureRegistry(t))

	var out, errOut bytes.Buffer
	code := cli.Run(strings.NewReader(""), &out, &errOut,
		[]string{"skill-router", "cache", "--json"}, env)
	require.Zero(t, code)

	var stats struct {
		Dir            string `json:"dir"`
		IndexCached    bool   `json:"index_cached"`
		IndexFreshness string `json:"index_freshness"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &stats))
	assert.False(t, stats.IndexCached)
	assert.Equal(t, "missing", stats.IndexFreshness)
}

func TestRun_PrintConfig(t *testing.T) {
	t.Parallel()

	env := fixtureEnv(t, buildFixtureRegistry(t))

	var out, errOut bytes.Buffer
	code := cli.Run(strings.NewReader(""), &out, &errOut,
		[]string{"skill-router", "print-config"}, env)
	require.Zero(t, code)

	assert.Contains(t, out.String(), "registry_kind=local\n")
	assert.Contains(t, out.String(), "registry_url="+env["SKILL_ROUTER_REGISTRY_URL"]+"\n")
	assert.Contains(t, out.String(), "threshold=18\n")
	assert.Contains(t, out.String(), "# sources\n(defaults and environment only)\n")
}

func TestRun_Help(t *testing.T) {
	t.Parallel()

	for _, arg := range []string{"help", "-h", "--help"} {
		var out, errOut bytes.Buffer
		code := cli.Run(strings.NewReader(""), &out, &errOut,
			[]string{"skill-router", arg}, map[string]string{})
		assert.Zero(t, code)
		assert.Contains(t, out.String(), "Usage: skill-router")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer
	code := cli.Run(strings.NewReader(""), &out, &errOut,
		[]string{"skill-router", "bogus"}, map[string]string{})
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut.String(), "unknown command: bogus")
}
