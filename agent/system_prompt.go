package agent

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tinkerhq/tinker/llm"
)

const maxProjectDocBytes = 32 * 1024

const basePrompt = `You are an autonomous coding agent running in a user's terminal. You help with software engineering tasks by reading files, editing code, running commands, and iterating until the task is done.

Guidelines:
- Read files before editing them. Understand existing code before changing it.
- Use edit_file for targeted changes to existing files and write_file only for new files.
- Keep changes minimal and focused on what was asked.
- After making changes, verify them by reading the modified file or running relevant tests.
- If a tool call fails, analyze the error and try a different approach.
- Write clean code that follows the project's existing style.`

// PromptInputs carries the optional pieces appended to the base instructions.
type PromptInputs struct {
	Model            string
	ProjectDocs      string // discovered project instruction files
	SkillsText       string // text blob from the skills subsystem
	UserInstructions string
	Tools            []llm.ToolDefinition
}

// BuildSystemPrompt assembles the canonical system prompt: base instructions,
// environment context, git context, tool descriptions, discovered project
// docs, loaded skills, and user instructions, in that order.
func BuildSystemPrompt(env ExecutionEnvironment, in PromptInputs) string {
	var sb strings.Builder

	sb.WriteString(basePrompt)
	sb.WriteString("\n\n")
	sb.WriteString(buildEnvironmentContext(env, in.Model))

	if gitCtx := gitContext(env.WorkingDirectory()); gitCtx != "" {
		sb.WriteString("\n\n")
		sb.WriteString(gitCtx)
	}

	if len(in.Tools) > 0 {
		sb.WriteString("\n\n# Available Tools\n")
		for _, def := range in.Tools {
			fmt.Fprintf(&sb, "\n## %s\n%s\n", def.Name, def.Description)
		}
	}

	if in.ProjectDocs != "" {
		sb.WriteString("\n\n# Project Instructions\n\n")
		sb.WriteString(in.ProjectDocs)
	}

	if in.SkillsText != "" {
		sb.WriteString("\n\n# Skills\n\n")
		sb.WriteString(in.SkillsText)
	}

	if in.UserInstructions != "" {
		sb.WriteString("\n\n# User Instructions\n\n")
		sb.WriteString(in.UserInstructions)
	}

	return sb.String()
}

// buildEnvironmentContext generates the structured environment block.
func buildEnvironmentContext(env ExecutionEnvironment, model string) string {
	workingDir := env.WorkingDirectory()
	inRepo := isGitRepository(workingDir)

	var sb strings.Builder
	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Working directory: %s\n", workingDir)
	fmt.Fprintf(&sb, "Is git repository: %v\n", inRepo)
	if inRepo {
		if branch := gitBranch(workingDir); branch != "" {
			fmt.Fprintf(&sb, "Git branch: %s\n", branch)
		}
	}
	fmt.Fprintf(&sb, "Platform: %s\n", env.Platform())
	fmt.Fprintf(&sb, "OS version: %s\n", env.OSVersion())
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	if model != "" {
		fmt.Fprintf(&sb, "Model: %s\n", model)
	}
	sb.WriteString("</environment>")
	return sb.String()
}

// DiscoverProjectDocs loads recognized project instruction files (AGENTS.md,
// TINKER.md) from the git root down to the working directory, capped at 32KB.
func DiscoverProjectDocs(workingDir string) string {
	root := gitRoot(workingDir)
	if root == "" {
		root = workingDir
	}

	recognized := []string{"AGENTS.md", "TINKER.md"}

	var docs []string
	totalBytes := 0
	for _, dir := range pathHierarchy(root, workingDir) {
		for _, name := range recognized {
			content, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				continue
			}

			remaining := maxProjectDocBytes - totalBytes
			if remaining <= 0 {
				docs = append(docs, "[Project instructions truncated at 32KB]")
				return strings.Join(docs, "\n\n---\n\n")
			}

			text := string(content)
			if len(text) > remaining {
				text = text[:remaining] + "\n[Project instructions truncated at 32KB]"
			}
			docs = append(docs, fmt.Sprintf("# %s (from %s)\n\n%s", name, dir, text))
			totalBytes += len(text)
		}
	}

	return strings.Join(docs, "\n\n---\n\n")
}

// gitContext summarizes the git state for the system prompt.
func gitContext(workingDir string) string {
	root := gitRoot(workingDir)
	if root == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<git_context>\n")
	if branch := gitBranch(root); branch != "" {
		fmt.Fprintf(&sb, "Branch: %s\n", branch)
	}
	if status := runGit(root, "status", "--short"); status != "" {
		lines := strings.Split(strings.TrimSpace(status), "\n")
		fmt.Fprintf(&sb, "Modified/untracked files: %d\n", len(lines))
	}
	if log := runGit(root, "log", "--oneline", "-10"); log != "" {
		sb.WriteString("Recent commits:\n")
		sb.WriteString(log)
	}
	sb.WriteString("</git_context>")
	return sb.String()
}

// pathHierarchy returns directories from root to target, inclusive.
func pathHierarchy(root, target string) []string {
	root = filepath.Clean(root)
	target = filepath.Clean(target)
	if root == target {
		return []string{root}
	}

	dirs := []string{root}
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return dirs
	}

	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "." || part == ".." {
			continue
		}
		current = filepath.Join(current, part)
		dirs = append(dirs, current)
	}
	return dirs
}

func isGitRepository(dir string) bool {
	out := runGit(dir, "rev-parse", "--is-inside-work-tree")
	return strings.TrimSpace(out) == "true"
}

func gitRoot(dir string) string {
	return strings.TrimSpace(runGit(dir, "rev-parse", "--show-toplevel"))
}

func gitBranch(dir string) string {
	return strings.TrimSpace(runGit(dir, "rev-parse", "--abbrev-ref", "HEAD"))
}

func runGit(dir string, args ...string) string {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return string(out)
}
