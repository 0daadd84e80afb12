package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tinkerhq/tinker/llm"
)

// RegisterCoreTools registers the built-in tools on a registry. The tools
// delegate all filesystem and process access to the ExecutionEnvironment
// passed to their executors.
func RegisterCoreTools(reg *ToolRegistry, defaultTimeoutMs, maxTimeoutMs int) {
	registerReadFile(reg)
	registerWriteFile(reg)
	registerEditFile(reg)
	registerShell(reg, defaultTimeoutMs, maxTimeoutMs)
	registerGrep(reg)
	registerGlob(reg)
	registerListDir(reg)
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func strProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func boolProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "boolean", "description": description}
}

func registerReadFile(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "read_file",
			Description: "Read a file from the filesystem. Returns line-numbered content.",
			Parameters: objectSchema(map[string]interface{}{
				"file_path": strProp("Path to the file to read."),
				"offset":    intProp("1-based line number to start reading from."),
				"limit":     intProp("Maximum number of lines to read. Default: 2000."),
			}, "file_path"),
		},
		Executor: func(ctx context.Context, args map[string]interface{}, env ExecutionEnvironment) (string, error) {
			filePath, ok := StringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", fmt.Errorf("file_path is required")
			}
			offset, _ := IntArg(args, "offset")
			limit, _ := IntArg(args, "limit")
			if limit <= 0 {
				limit = 2000
			}

			content, err := env.ReadFile(filePath)
			if err != nil {
				return "", err
			}

			lines := strings.Split(content, "\n")
			start := 0
			if offset > 0 {
				start = offset - 1
			}
			if start >= len(lines) {
				return "", nil
			}
			end := len(lines)
			if start+limit < end {
				end = start + limit
			}

			var sb strings.Builder
			for i := start; i < end; i++ {
				fmt.Fprintf(&sb, "%6d\t%s\n", i+1, lines[i])
			}
			return sb.String(), nil
		},
	})
}

func registerWriteFile(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "write_file",
			Description: "Write content to a file, creating it and any parent directories if needed.",
			Parameters: objectSchema(map[string]interface{}{
				"file_path": strProp("Path to write to."),
				"content":   strProp("The full file content to write."),
			}, "file_path", "content"),
		},
		Executor: func(ctx context.Context, args map[string]interface{}, env ExecutionEnvironment) (string, error) {
			filePath, ok := StringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", fmt.Errorf("file_path is required")
			}
			content, ok := StringArg(args, "content")
			if !ok {
				return "", fmt.Errorf("content is required")
			}
			if err := env.WriteFile(filePath, content); err != nil {
				return "", err
			}
			return fmt.Sprintf("Wrote %d bytes to %s", len(content), filePath), nil
		},
	})
}

func registerEditFile(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "edit_file",
			Description: "Replace an exact string occurrence in a file. old_string must be unique in the file unless replace_all is true.",
			Parameters: objectSchema(map[string]interface{}{
				"file_path":   strProp("Path to the file to edit."),
				"old_string":  strProp("Exact text to find in the file."),
				"new_string":  strProp("Replacement text."),
				"replace_all": boolProp("Replace all occurrences. Default: false."),
			}, "file_path", "old_string", "new_string"),
		},
		Executor: func(ctx context.Context, args map[string]interface{}, env ExecutionEnvironment) (string, error) {
			filePath, ok := StringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", fmt.Errorf("file_path is required")
			}
			oldString, ok := StringArg(args, "old_string")
			if !ok || oldString == "" {
				return "", fmt.Errorf("old_string is required")
			}
			newString, _ := StringArg(args, "new_string")
			replaceAll, _ := BoolArg(args, "replace_all")

			content, err := env.ReadFile(filePath)
			if err != nil {
				return "", err
			}

			count := strings.Count(content, oldString)
			if count == 0 {
				return "", fmt.Errorf("old_string not found in %s", filePath)
			}
			if count > 1 && !replaceAll {
				return "", fmt.Errorf("old_string found %d times in %s; add more context to make it unique or set replace_all", count, filePath)
			}

			var updated string
			replaced := 1
			if replaceAll {
				updated = strings.ReplaceAll(content, oldString, newString)
				replaced = count
			} else {
				updated = strings.Replace(content, oldString, newString, 1)
			}

			if err := env.WriteFile(filePath, updated); err != nil {
				return "", err
			}
			return fmt.Sprintf("Replaced %d occurrence(s) in %s", replaced, filePath), nil
		},
	})
}

func registerShell(reg *ToolRegistry, defaultTimeoutMs, maxTimeoutMs int) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "shell",
			Description: "Execute a shell command. Returns stdout, stderr, and exit code.",
			Parameters: objectSchema(map[string]interface{}{
				"command":     strProp("The command to run."),
				"timeout_ms":  intProp("Override the default command timeout in milliseconds."),
				"description": strProp("Human-readable description of what this command does."),
			}, "command"),
		},
		Executor: func(ctx context.Context, args map[string]interface{}, env ExecutionEnvironment) (string, error) {
			command, ok := StringArg(args, "command")
			if !ok || command == "" {
				return "", fmt.Errorf("command is required")
			}
			timeoutMs, _ := IntArg(args, "timeout_ms")
			if timeoutMs <= 0 {
				timeoutMs = defaultTimeoutMs
			}
			if timeoutMs > maxTimeoutMs {
				timeoutMs = maxTimeoutMs
			}

			result, err := env.ExecCommand(ctx, command, timeoutMs, "", nil)
			if err != nil {
				return "", err
			}

			var sb strings.Builder
			sb.WriteString(result.Output())
			if result.TimedOut {
				fmt.Fprintf(&sb, "\n\n[Command timed out after %dms. Partial output shown above; retry with a larger timeout_ms if needed.]", timeoutMs)
			} else if result.ExitCode != 0 {
				fmt.Fprintf(&sb, "\n\n[Exit code: %d]", result.ExitCode)
			}
			return sb.String(), nil
		},
	})
}

func registerGrep(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "grep",
			Description: "Search file contents with a regex pattern. Returns matching lines with file paths and line numbers.",
			Parameters: objectSchema(map[string]interface{}{
				"pattern":          strProp("Regex pattern to search for."),
				"path":             strProp("Directory or file to search. Default: working directory."),
				"glob_filter":      strProp("File pattern filter (e.g. \"*.go\")."),
				"case_insensitive": boolProp("Case insensitive search. Default: false."),
				"max_results":      intProp("Maximum number of results. Default: 100."),
			}, "pattern"),
		},
		Executor: func(ctx context.Context, args map[string]interface{}, env ExecutionEnvironment) (string, error) {
			pattern, ok := StringArg(args, "pattern")
			if !ok || pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}
			path, _ := StringArg(args, "path")
			globFilter, _ := StringArg(args, "glob_filter")
			caseInsensitive, _ := BoolArg(args, "case_insensitive")
			maxResults, _ := IntArg(args, "max_results")
			if maxResults <= 0 {
				maxResults = 100
			}

			out, err := env.Grep(ctx, pattern, path, GrepOptions{
				GlobFilter:      globFilter,
				CaseInsensitive: caseInsensitive,
				MaxResults:      maxResults,
			})
			if err != nil {
				return "", err
			}
			if out == "" {
				return "No matches found.", nil
			}
			return out, nil
		},
	})
}

func registerGlob(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "glob",
			Description: "Find files matching a glob pattern.",
			Parameters: objectSchema(map[string]interface{}{
				"pattern": strProp("Glob pattern (e.g. \"**/*.go\")."),
				"path":    strProp("Base directory. Default: working directory."),
			}, "pattern"),
		},
		Executor: func(ctx context.Context, args map[string]interface{}, env ExecutionEnvironment) (string, error) {
			pattern, ok := StringArg(args, "pattern")
			if !ok || pattern == "" {
				return "", fmt.Errorf("pattern is required")
			}
			path, _ := StringArg(args, "path")

			matches, err := env.Glob(pattern, path)
			if err != nil {
				return "", err
			}
			if len(matches) == 0 {
				return "No files matched the pattern.", nil
			}
			return strings.Join(matches, "\n"), nil
		},
	})
}

func registerListDir(reg *ToolRegistry) {
	reg.Register(RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "list_dir",
			Description: "List the entries of a directory with sizes.",
			Parameters: objectSchema(map[string]interface{}{
				"path": strProp("Directory to list. Default: working directory."),
			}),
		},
		Executor: func(ctx context.Context, args map[string]interface{}, env ExecutionEnvironment) (string, error) {
			path, _ := StringArg(args, "path")
			if path == "" {
				path = "."
			}
			entries, err := env.ListDirectory(path)
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return "Directory is empty.", nil
			}
			var sb strings.Builder
			for _, entry := range entries {
				if entry.IsDir {
					fmt.Fprintf(&sb, "%s/\n", entry.Name)
				} else {
					fmt.Fprintf(&sb, "%s (%d bytes)\n", entry.Name, entry.Size)
				}
			}
			return sb.String(), nil
		},
	})
}
