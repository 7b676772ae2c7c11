package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

// ttest checks behavioral equivalence: every fixture C program is
// compiled and run natively, then translated, compiled and run in each
// target language, and the outputs are compared run for run.

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// RunCase is one invocation of a fixture binary.
type RunCase struct {
	Name  string   `yaml:"name"`
	Args  []string `yaml:"args"`
	Stdin string   `yaml:"stdin"`
}

// Fixture describes one C source under test. Fixtures found by glob
// and absent from the manifest run once with no input.
type Fixture struct {
	File    string    `yaml:"file"`
	Targets []string  `yaml:"targets"`
	Skip    string    `yaml:"skip"`
	Cases   []RunCase `yaml:"cases"`
}

type Manifest struct {
	Fixtures []Fixture `yaml:"fixtures"`
}

// Golden caches the native reference outputs keyed by source hash, so
// unchanged fixtures skip the reference compile entirely.
type Golden struct {
	Hash string               `json:"hash"`
	Runs map[string]Execution `json:"runs"`
}

type TargetOutcome struct {
	Target  string `json:"target"`
	Status  string `json:"status"` // PASS, FAIL, SKIP, ERROR
	Message string `json:"message,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

type FixtureResult struct {
	File     string          `json:"file"`
	Outcomes []TargetOutcome `json:"outcomes"`
}

var (
	translator  = flag.String("translator", "./gct", "Path to the translator under test.")
	refCC       = flag.String("cc", "cc", "Reference C compiler.")
	javacBin    = flag.String("javac", "javac", "Java compiler for translated output.")
	javaBin     = flag.String("java", "java", "Java launcher for translated output.")
	cxxBin      = flag.String("cxx", "c++", "C++ compiler for translated output.")
	manifest    = flag.String("manifest", "testdata/ttest.yaml", "YAML suite manifest (optional).")
	testFiles   = flag.String("test-files", "testdata/*.c", "Glob pattern(s) for fixtures (space-separated).")
	targetList  = flag.String("targets", "java,cpp", "Comma-separated target languages to verify.")
	jsonDir     = flag.String("dir", "", "Directory for golden JSON files (defaults to the fixture dir).")
	timeout     = flag.Duration("timeout", 10*time.Second, "Timeout for each command execution.")
	jobs        = flag.Int("j", 4, "Number of parallel fixtures.")
	useCache    = flag.Bool("cached", false, "Trust golden files even when the reference compiler is available.")
	ignoreLines = flag.String("ignore-lines", "", "Comma-separated substrings to drop from outputs before comparing.")
	verbose     = flag.Bool("v", false, "Enable verbose logging.")
)

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	flag.Parse()
	log.SetFlags(0)

	tempDir, err := os.MkdirTemp("", "ttest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	setupInterruptHandler(tempDir)

	fixtures, err := loadSuite()
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if len(fixtures) == 0 {
		log.Println("No fixtures found matching the pattern(s).")
		return
	}

	_, err = exec.LookPath(*refCC)
	refFound := err == nil
	if !refFound && !*useCache {
		log.Printf("%s[WARN]%s Reference compiler '%s' not found. Will rely on golden files.\n", cYellow, cNone, *refCC)
	}

	tasks := make(chan Fixture, len(fixtures))
	resultsChan := make(chan *FixtureResult, len(fixtures))
	var wg sync.WaitGroup

	for i := 0; i < *jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for fx := range tasks {
				resultsChan <- testFixture(fx, tempDir, refFound)
			}
		}()
	}
	for _, fx := range fixtures {
		tasks <- fx
	}
	close(tasks)
	wg.Wait()
	close(resultsChan)

	var results []*FixtureResult
	for r := range resultsChan {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })

	if printSummary(results) {
		os.Exit(1)
	}
}

func setupInterruptHandler(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

// loadSuite merges the manifest with the glob results. A manifest
// entry overrides the defaults for its file; everything else runs one
// argument-free case against all targets.
func loadSuite() ([]Fixture, error) {
	byFile := make(map[string]Fixture)
	var order []string

	if data, err := os.ReadFile(*manifest); err == nil {
		var m Manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("could not parse manifest %s: %v", *manifest, err)
		}
		for _, fx := range m.Fixtures {
			byFile[fx.File] = fx
			order = append(order, fx.File)
		}
	}

	for _, pattern := range strings.Fields(*testFiles) {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %v", pattern, err)
		}
		for _, file := range files {
			if info, err := os.Stat(file); err != nil || !info.Mode().IsRegular() {
				continue
			}
			if _, ok := byFile[file]; !ok {
				byFile[file] = Fixture{File: file}
				order = append(order, file)
			}
		}
	}

	defaultTargets := strings.Split(*targetList, ",")
	var fixtures []Fixture
	for _, file := range order {
		fx := byFile[file]
		if len(fx.Targets) == 0 {
			fx.Targets = defaultTargets
		}
		if len(fx.Cases) == 0 {
			fx.Cases = []RunCase{{Name: "default"}}
		}
		fixtures = append(fixtures, fx)
	}
	return fixtures, nil
}

func testFixture(fx Fixture, tempDir string, refFound bool) *FixtureResult {
	result := &FixtureResult{File: fx.File}
	if fx.Skip != "" {
		for _, target := range fx.Targets {
			result.Outcomes = append(result.Outcomes, TargetOutcome{Target: target, Status: "SKIP", Message: fx.Skip})
		}
		return result
	}

	hash, err := hashFile(fx.File)
	if err != nil {
		result.Outcomes = append(result.Outcomes, TargetOutcome{Status: "ERROR", Message: fmt.Sprintf("could not hash source: %v", err)})
		return result
	}

	golden, err := referenceRuns(fx, tempDir, hash, refFound)
	if err != nil {
		for _, target := range fx.Targets {
			result.Outcomes = append(result.Outcomes, TargetOutcome{Target: target, Status: "SKIP", Message: err.Error()})
		}
		return result
	}

	for _, target := range fx.Targets {
		result.Outcomes = append(result.Outcomes, runTarget(fx, target, tempDir, hash, golden))
	}
	return result
}

func goldenPath(sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if *jsonDir != "" {
		return filepath.Join(*jsonDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

// referenceRuns returns the native outputs for every case, from the
// golden file when the source hash still matches, compiling fresh
// otherwise.
func referenceRuns(fx Fixture, tempDir, hash string, refFound bool) (*Golden, error) {
	path := goldenPath(fx.File)
	if data, err := os.ReadFile(path); err == nil {
		var g Golden
		if json.Unmarshal(data, &g) == nil && g.Hash == hash && coversCases(&g, fx.Cases) {
			if *verbose {
				log.Printf("[%s] reference from golden file", fx.File)
			}
			return &g, nil
		}
	}
	if !refFound {
		return nil, fmt.Errorf("reference compiler '%s' not found and no current golden file", *refCC)
	}

	binary := filepath.Join(tempDir, "ref-"+hash)
	compile := runCommand(*refCC, []string{"-o", binary, fx.File}, "")
	if compile.ExitCode != 0 || compile.TimedOut {
		return nil, fmt.Errorf("reference compile failed:\n%s", compile.Stderr)
	}

	g := &Golden{Hash: hash, Runs: make(map[string]Execution)}
	for _, c := range fx.Cases {
		g.Runs[c.Name] = runCommand(binary, c.Args, c.Stdin)
	}

	if data, err := json.MarshalIndent(g, "", "  "); err == nil {
		if *jsonDir != "" {
			os.MkdirAll(*jsonDir, 0o755)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil && *verbose {
			log.Printf("[%s] could not write golden file: %v", fx.File, err)
		}
	}
	return g, nil
}

func coversCases(g *Golden, cases []RunCase) bool {
	for _, c := range cases {
		if _, ok := g.Runs[c.Name]; !ok {
			return false
		}
	}
	return true
}

// runTarget translates one fixture, compiles the translation and
// compares every case's output against the reference.
func runTarget(fx Fixture, target, tempDir, hash string, golden *Golden) TargetOutcome {
	work := filepath.Join(tempDir, hash+"-"+target)
	if err := os.MkdirAll(work, 0o755); err != nil {
		return TargetOutcome{Target: target, Status: "ERROR", Message: fmt.Sprintf("could not create work dir: %v", err)}
	}

	var runBin string
	var runArgs []string

	switch target {
	case "java":
		srcOut := filepath.Join(work, "Main.java")
		translate := runCommand(*translator, []string{"-t", "java", "--class-name", "Main", "-o", srcOut, fx.File}, "")
		if translate.ExitCode != 0 || translate.TimedOut {
			return TargetOutcome{Target: target, Status: "FAIL", Message: "translation failed", Diff: translate.Stderr}
		}
		compile := runCommand(*javacBin, []string{"-d", work, srcOut}, "")
		if compile.ExitCode != 0 || compile.TimedOut {
			return TargetOutcome{Target: target, Status: "FAIL", Message: "translated Java does not compile", Diff: compile.Stderr}
		}
		runBin = *javaBin
		runArgs = []string{"-cp", work, "Main"}

	case "cpp":
		srcOut := filepath.Join(work, "main.cpp")
		translate := runCommand(*translator, []string{"-t", "cpp", "-o", srcOut, fx.File}, "")
		if translate.ExitCode != 0 || translate.TimedOut {
			return TargetOutcome{Target: target, Status: "FAIL", Message: "translation failed", Diff: translate.Stderr}
		}
		binary := filepath.Join(work, "main")
		compile := runCommand(*cxxBin, []string{"-o", binary, srcOut}, "")
		if compile.ExitCode != 0 || compile.TimedOut {
			return TargetOutcome{Target: target, Status: "FAIL", Message: "translated C++ does not compile", Diff: compile.Stderr}
		}
		runBin = binary

	default:
		return TargetOutcome{Target: target, Status: "ERROR", Message: fmt.Sprintf("unknown target '%s'", target)}
	}

	ignored := ignoredSubstrings()
	var diffs strings.Builder
	failed := false
	for _, c := range fx.Cases {
		ref := golden.Runs[c.Name]
		got := runCommand(runBin, append(append([]string{}, runArgs...), c.Args...), c.Stdin)

		if ref.ExitCode != got.ExitCode {
			failed = true
			fmt.Fprintf(&diffs, "case '%s' exit code mismatch: reference %d, target %d\n", c.Name, ref.ExitCode, got.ExitCode)
		}
		refOut := filterOutput(ref.Stdout, ignored)
		gotOut := filterOutput(got.Stdout, ignored)
		if refOut != gotOut {
			failed = true
			fmt.Fprintf(&diffs, "case '%s' stdout mismatch:\n%s", c.Name, cmp.Diff(ref.Stdout, got.Stdout))
		}
	}

	if failed {
		return TargetOutcome{Target: target, Status: "FAIL", Message: "output mismatch", Diff: diffs.String()}
	}
	return TargetOutcome{Target: target, Status: "PASS", Message: fmt.Sprintf("%d case(s)", len(fx.Cases))}
}

func ignoredSubstrings() []string {
	if *ignoreLines == "" {
		return nil
	}
	return strings.Split(*ignoreLines, ",")
}

func filterOutput(output string, ignored []string) string {
	if len(ignored) == 0 || output == "" {
		return output
	}
	lines := strings.Split(output, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		drop := false
		for _, sub := range ignored {
			if sub != "" && strings.Contains(line, sub) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// runCommand executes one command with the configured timeout and
// captures its outcome.
func runCommand(command string, args []string, stdinData string) Execution {
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdinData != "" {
		cmd.Stdin = strings.NewReader(stdinData)
	}

	err := cmd.Run()
	result := Execution{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
	} else if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			result.ExitCode = -2
			result.Stderr += "\nExecution error: " + err.Error()
		}
	}
	return result
}

func printSummary(results []*FixtureResult) bool {
	var passed, failed, skipped, errored int

	for _, r := range results {
		fmt.Println("----------------------------------------------------------------------")
		fmt.Printf("Testing %s%s%s...\n", cCyan, r.File, cNone)
		for _, o := range r.Outcomes {
			label := o.Target
			if label == "" {
				label = "-"
			}
			switch o.Status {
			case "PASS":
				passed++
				fmt.Printf("  [%sPASS%s] %-5s %s\n", cGreen, cNone, label, o.Message)
			case "FAIL":
				failed++
				fmt.Printf("  [%sFAIL%s] %-5s %s\n", cRed, cNone, label, o.Message)
				fmt.Print(formatDiff(o.Diff))
			case "SKIP":
				skipped++
				fmt.Printf("  [%sSKIP%s] %-5s %s\n", cYellow, cNone, label, o.Message)
			case "ERROR":
				errored++
				fmt.Printf("  [%sERROR%s] %-5s %s\n", cRed, cNone, label, o.Message)
			}
		}
	}

	fmt.Println("----------------------------------------------------------------------")
	fmt.Printf("%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s\n",
		cBold, cNone, cGreen, passed, cNone, cRed, failed, cNone, cYellow, skipped, cNone, cRed, errored, cNone)
	return failed > 0 || errored > 0
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "-") {
			sb.WriteString(cRed)
		} else if strings.HasPrefix(trimmed, "+") {
			sb.WriteString(cGreen)
		}
		sb.WriteString("    " + line)
		sb.WriteString(cNone)
		sb.WriteString("\n")
	}
	return sb.String()
}
