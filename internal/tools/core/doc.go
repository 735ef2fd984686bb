// Package core provides the filesystem tools available to the coding,
// debugging, and refactoring phases: reading, writing, editing, and
// listing files, plus glob and grep search.
//
// Tools:
//   - read_file: Read file contents
//   - write_file: Write content to a file
//   - edit_file: Edit file with replacements
//   - list_files: List directory contents
//   - glob: Find files matching a pattern
//   - grep: Search file contents with regex
//   - delete_file: Delete a file
//   - search_code: grep with code-search defaults
package core
