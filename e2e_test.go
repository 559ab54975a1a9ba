package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/syou6162/git-line-patch/testutils"
)

const (
	originalText = "one\ntwo\nthree\n"
	modifiedText = "one\nfoo\ntwo\nthree\nbar\n"
)

// setupModifiedRepo はコミット済みファイルを変更した状態のリポジトリを作成します
func setupModifiedRepo(t *testing.T) string {
	t.Helper()
	testutils.RequireGit(t)

	dir, repo := testutils.CreateTestRepo(t)
	testutils.CreateAndCommitFile(t, dir, repo, "a.txt", originalText, "Initial commit")
	testutils.WriteFile(t, dir, "a.txt", modifiedText)
	return dir
}

// emptyConfig は開発者の設定に影響されないよう空の設定ファイルを作成します
func emptyConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// gitOutput はgitコマンドを実行して出力を返します
func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	output, err := testutils.RunCommand(t, dir, "git", args...)
	if err != nil {
		t.Fatalf("git %v failed: %v\nOutput: %s", args, err, output)
	}
	return output
}

// writeDiff は表示中のdiffをファイルに保存し、そのパスを返します
func writeDiff(t *testing.T, dir string, diff string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "view.diff")
	if err := os.WriteFile(path, []byte(diff), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// selectLine はdiff中の1行を選択するフラグを返します
func selectLine(t *testing.T, diff, line string) []string {
	t.Helper()
	offset := testutils.DiffLineOffset(diff, line)
	if offset < 0 {
		t.Fatalf("line %q not found in diff:\n%s", line, diff)
	}
	return []string{"-start=" + strconv.Itoa(offset), "-length=" + strconv.Itoa(len(line))}
}

// runCLI はCLIをプロセス内で実行します
func runCLI(t *testing.T, dir string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"-repo=" + dir, "-config=" + emptyConfig(t)}, args...)
	code := run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// TestStageSelectedLine は選択した1行だけがステージされることを確認します
func TestStageSelectedLine(t *testing.T) {
	dir := setupModifiedRepo(t)
	diff := gitOutput(t, dir, "diff", "--", "a.txt")

	args := append([]string{"-path=a.txt", "-action=stage", "-status=worktree", "-diff=" + writeDiff(t, dir, diff)}, selectLine(t, diff, "+foo")...)
	code, stdout, stderr := runCLI(t, dir, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	// 検証1: fooだけがステージされているか
	staged := gitOutput(t, dir, "diff", "--cached")
	testutils.AssertDiffContains(t, staged, "+foo")
	testutils.AssertDiffNotContains(t, staged, "+bar")

	// 検証2: barはワーキングディレクトリに残っているか
	working := gitOutput(t, dir, "diff")
	testutils.AssertDiffContains(t, working, "+bar")
	testutils.AssertDiffNotContains(t, working, "+foo")
}

// TestStageWithDiffFromGit は-diffを省略した場合にgitからdiffを取得することを確認します
func TestStageWithDiffFromGit(t *testing.T) {
	dir := setupModifiedRepo(t)
	diff := gitOutput(t, dir, "diff", "--no-color", "--no-ext-diff", "--", "a.txt")

	args := append([]string{"-path=a.txt", "-action=stage"}, selectLine(t, diff, "+bar")...)
	code, stdout, stderr := runCLI(t, dir, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	staged := gitOutput(t, dir, "diff", "--cached")
	testutils.AssertDiffContains(t, staged, "+bar")
	testutils.AssertDiffNotContains(t, staged, "+foo")
}

// TestUnstageSelectedLine はステージ済みの変更から1行だけを取り消せることを確認します
func TestUnstageSelectedLine(t *testing.T) {
	dir := setupModifiedRepo(t)
	gitOutput(t, dir, "add", "a.txt")
	diff := gitOutput(t, dir, "diff", "--cached", "--", "a.txt")

	args := append([]string{"-path=a.txt", "-action=unstage", "-status=index", "-diff=" + writeDiff(t, dir, diff)}, selectLine(t, diff, "+bar")...)
	code, stdout, stderr := runCLI(t, dir, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	staged := gitOutput(t, dir, "diff", "--cached")
	testutils.AssertDiffContains(t, staged, "+foo")
	testutils.AssertDiffNotContains(t, staged, "+bar")
}

// TestResetSelectedLine はワーキングディレクトリの1行だけを元に戻せることを確認します
func TestResetSelectedLine(t *testing.T) {
	dir := setupModifiedRepo(t)
	diff := gitOutput(t, dir, "diff", "--", "a.txt")

	args := append([]string{"-path=a.txt", "-action=reset", "-status=worktree", "-diff=" + writeDiff(t, dir, diff)}, selectLine(t, diff, "+bar")...)
	code, stdout, stderr := runCLI(t, dir, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	if got := testutils.ReadFile(t, dir, "a.txt"); got != "one\nfoo\ntwo\nthree\n" {
		t.Errorf("unexpected worktree content:\n%s", got)
	}
}

// TestStagePartOfNewFile は新規ファイルの一部だけをステージできることを確認します
func TestStagePartOfNewFile(t *testing.T) {
	testutils.RequireGit(t)
	dir, repo := testutils.CreateTestRepo(t)
	testutils.CreateAndCommitFile(t, dir, repo, "a.txt", originalText, "Initial commit")
	testutils.WriteFile(t, dir, "n.txt", "a\nb\nc\n")

	// "b\n" は2文字目から始まる
	code, stdout, stderr := runCLI(t, dir, "-path=n.txt", "-action=stage", "-status=worktree", "-new", "-start=2", "-length=1")
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	if got := gitOutput(t, dir, "show", ":n.txt"); got != "b\n" {
		t.Errorf("unexpected staged content: %q", got)
	}
}

// TestDryRun はパッチを表示するだけでリポジトリを変更しないことを確認します
func TestDryRun(t *testing.T) {
	dir := setupModifiedRepo(t)
	diff := gitOutput(t, dir, "diff", "--", "a.txt")

	args := append([]string{"-path=a.txt", "-action=stage", "-status=worktree", "-dry-run", "-diff=" + writeDiff(t, dir, diff)}, selectLine(t, diff, "+foo")...)
	code, stdout, stderr := runCLI(t, dir, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstderr: %s", code, stderr)
	}

	testutils.AssertDiffContains(t, stdout, "+foo")
	testutils.AssertDiffNotContains(t, stdout, "bar")
	if staged := gitOutput(t, dir, "diff", "--cached"); strings.TrimSpace(staged) != "" {
		t.Errorf("dry run staged changes:\n%s", staged)
	}
}

// TestMalformedDiffFallsBackToWholeFile は壊れたdiffの場合にファイル全体をステージすることを確認します
func TestMalformedDiffFallsBackToWholeFile(t *testing.T) {
	dir := setupModifiedRepo(t)
	malformed := "diff --git a/a.txt b/a.txt\n--- a/a.txt\n+++ b/a.txt\n@@ -1,3 +1,9 @@\n one\n+foo\n"

	code, stdout, stderr := runCLI(t, dir, "-path=a.txt", "-action=stage", "-status=worktree", "-diff="+writeDiff(t, dir, malformed))
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	staged := gitOutput(t, dir, "diff", "--cached")
	testutils.AssertDiffContains(t, staged, "+foo", "+bar")
}

// TestDisabledAction は無効な操作が失敗として報告されることを確認します
func TestDisabledAction(t *testing.T) {
	dir := setupModifiedRepo(t)
	diff := gitOutput(t, dir, "diff", "--", "a.txt")

	code, _, stderr := runCLI(t, dir, "-path=a.txt", "-action=unstage", "-status=worktree", "-diff="+writeDiff(t, dir, diff))
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "unstage") {
		t.Errorf("stderr does not explain the disabled action: %s", stderr)
	}
}

// TestInvalidArguments は引数エラーで終了コード1を返すことを確認します
func TestInvalidArguments(t *testing.T) {
	testutils.RequireGit(t)
	dir, _ := testutils.CreateTestRepo(t)

	code, _, stderr := runCLI(t, dir, "-action=stage")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, "path cannot be empty") {
		t.Errorf("unexpected stderr: %s", stderr)
	}
}

// setupHistory はa.txtを変更したコミットの後に、文脈行を変えるコミットを重ねたリポジトリを作成します
// 戻り値は選択対象となるコミットのハッシュです
func setupHistory(t *testing.T, drifted string) (string, string) {
	t.Helper()
	testutils.RequireGit(t)

	dir, repo := testutils.CreateTestRepo(t)
	testutils.CreateAndCommitFile(t, dir, repo, "a.txt", "a\nb\nc\nd\n", "Initial commit")
	target := testutils.CreateAndCommitFile(t, dir, repo, "a.txt", "a\nB\nc\nD\n", "Change b and d")
	testutils.CreateAndCommitFile(t, dir, repo, "a.txt", drifted, "Drift context")
	// --indexはワーキングツリーとインデックスの一致を確認するため、stat情報を更新しておく
	gitOutput(t, dir, "update-index", "-q", "--refresh")
	return dir, target.String()
}

// selectLines はdiff中の連続した複数行を選択するフラグを返します
func selectLines(t *testing.T, diff string, lines ...string) []string {
	t.Helper()
	offset := testutils.DiffLineOffset(diff, lines[0])
	if offset < 0 {
		t.Fatalf("line %q not found in diff:\n%s", lines[0], diff)
	}
	length := len([]rune(strings.Join(lines, "\n")))
	return []string{"-start=" + strconv.Itoa(offset), "-length=" + strconv.Itoa(length)}
}

// TestRevertSelectionOfCommit は文脈行が後から変更されていても、コミットの一部を3-wayで取り消せることを確認します
func TestRevertSelectionOfCommit(t *testing.T) {
	dir, rev := setupHistory(t, "A\nB\nc\nD\n")
	diff := gitOutput(t, dir, "show", "--no-color", "--no-ext-diff", "--format=", rev, "--", "a.txt")

	args := append([]string{"-path=a.txt", "-action=revert", "-status=committed", "-rev=" + rev}, selectLines(t, diff, "-d", "+D")...)
	code, stdout, stderr := runCLI(t, dir, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	// 検証1: dの変更だけが取り消され、後のコミットのAは残っているか
	if got := testutils.ReadFile(t, dir, "a.txt"); got != "A\nB\nc\nd\n" {
		t.Errorf("unexpected worktree content:\n%s", got)
	}

	// 検証2: --indexによりインデックスにも反映されているか
	staged := gitOutput(t, dir, "diff", "--cached")
	testutils.AssertDiffContains(t, staged, "-D", "+d")
	testutils.AssertDiffNotContains(t, staged, "+b")
}

// TestCherryPickSelectionOfCommit は文脈行が後から変更されていても、コミットの一部を3-wayで適用できることを確認します
func TestCherryPickSelectionOfCommit(t *testing.T) {
	dir, rev := setupHistory(t, "Z\nb\nc\nd\n")
	diff := gitOutput(t, dir, "show", "--no-color", "--no-ext-diff", "--format=", rev, "--", "a.txt")

	args := append([]string{"-path=a.txt", "-action=apply", "-status=committed", "-rev=" + rev}, selectLines(t, diff, "-d", "+D")...)
	code, stdout, stderr := runCLI(t, dir, args...)
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	if got := testutils.ReadFile(t, dir, "a.txt"); got != "Z\nb\nc\nD\n" {
		t.Errorf("unexpected worktree content:\n%s", got)
	}
}

// TestUnstageWholeNewFile は新規ファイル全体のアンステージで未追跡の状態に戻ることを確認します
func TestUnstageWholeNewFile(t *testing.T) {
	testutils.RequireGit(t)
	dir, repo := testutils.CreateTestRepo(t)
	testutils.CreateAndCommitFile(t, dir, repo, "a.txt", originalText, "Initial commit")
	testutils.WriteFile(t, dir, "n.txt", "a\nb\n")
	gitOutput(t, dir, "add", "n.txt")

	code, stdout, stderr := runCLI(t, dir, "-path=n.txt", "-action=unstage", "-status=index", "-new")
	if code != 0 {
		t.Fatalf("exit code %d\nstdout: %s\nstderr: %s", code, stdout, stderr)
	}

	if got := gitOutput(t, dir, "status", "--short", "--", "n.txt"); got != "?? n.txt\n" {
		t.Errorf("unexpected status: %q", got)
	}
	if got := testutils.ReadFile(t, dir, "n.txt"); got != "a\nb\n" {
		t.Errorf("worktree content changed: %q", got)
	}
}
