package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mustng65/angular-starter-schematic/cas"
	"github.com/mustng65/angular-starter-schematic/filetree"
)

const diffContext = 3

type diffLine struct {
	op   byte // ' ', '-' or '+'
	text string
}

// unifiedDiff renders the change of one file as a unified diff.
func unifiedDiff(path, before, after string) string {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []diffLine
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		op := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = '-'
		case diffmatchpatch.DiffInsert:
			op = '+'
		}
		for _, l := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			lines = append(lines, diffLine{op: op, text: l})
		}
	}

	var b strings.Builder
	from := "a/" + path
	if before == "" {
		from = "/dev/null"
	}
	fmt.Fprintf(&b, "--- %s\n+++ b/%s\n", from, path)

	oldLine, newLine := 1, 1
	for i := 0; i < len(lines); {
		if lines[i].op == ' ' {
			oldLine++
			newLine++
			i++
			continue
		}

		// Extend the hunk while changes are separated by at most
		// 2*diffContext unchanged lines.
		start := max(i-diffContext, 0)
		for start < i && lines[start].op != ' ' {
			start++
		}
		end := i
		for end < len(lines) {
			if lines[end].op != ' ' {
				end++
				continue
			}
			run := end
			for run < len(lines) && lines[run].op == ' ' {
				run++
			}
			if run == len(lines) || run-end > 2*diffContext {
				end = min(end+diffContext, len(lines))
				break
			}
			end = run
		}

		oldStart, newStart := oldLine-(i-start), newLine-(i-start)
		oldCount, newCount := 0, 0
		var body strings.Builder
		for _, l := range lines[start:end] {
			switch l.op {
			case ' ':
				oldCount++
				newCount++
			case '-':
				oldCount++
			case '+':
				newCount++
			}
			body.WriteByte(l.op)
			body.WriteString(l.text)
			body.WriteByte('\n')
		}
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", hunkStart(oldStart, oldCount), oldCount, hunkStart(newStart, newCount), newCount)
		b.WriteString(body.String())

		for _, l := range lines[i:end] {
			if l.op != '+' {
				oldLine++
			}
			if l.op != '-' {
				newLine++
			}
		}
		i = end
	}
	return b.String()
}

// hunkStart follows the unified format, where an empty range starts at the
// line before it.
func hunkStart(start, count int) int {
	if count == 0 {
		return start - 1
	}
	return start
}

// printSummary lists written files the way a schematic run reports them.
func printSummary(w io.Writer, changes []filetree.FileChange) {
	for _, c := range changes {
		action := "UPDATE"
		if c.Action == filetree.ActionCreate {
			action = "CREATE"
		}
		fmt.Fprintf(w, "%s %s (%d bytes, %s)\n", action, c.Path, len(c.After), cas.ShortDigest(c.Digest))
	}
}
