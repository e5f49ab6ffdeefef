// Package harness runs conformance suites against a schema.
//
// A suite is a YAML file naming a schema and a list of queries with their
// expected outcome:
//
//	name: tasks
//	schema: schema.cue        # relative to the suite file
//	cases:
//	  - name: title_equal
//	    query: 'Title Equal "Write docs"'
//	    golden: true          # compare the AST JSON with testdata/golden/title_equal.golden
//	  - name: json_group
//	    syntax: json
//	    query: '["or",[["title","start-with","W"]]]'
//	  - name: dangling_operator
//	    query: title Equal
//	    expect_error: invalid-last-token
//
// expect_error holds a validate or parse error code, or "tokenize" for
// malformed JSON structure. Each query is validated first and parsed only
// when validation passes, so a validated query that fails to parse is
// reported as a failure.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
