// Package harness runs conformance scenarios against the thecl command.
//
// # Scenario Format
//
// Scenarios are YAML files. Each one runs in a fresh working directory
// seeded with its files, then runs thecl once per step:
//
//	name: th06_roundtrip
//	description: "Compiled output decompiles to the same source"
//	files:
//	  stage.tecl: |
//	    sub Sub0 {
//	        ins_1(3);
//	    }
//	binary:
//	  empty.ecl: ""
//	steps:
//	  - args: ["-c", "6", "stage.tecl", "stage.ecl"]
//	  - args: ["-d", "6", "stage.ecl"]
//	    expect:
//	      stdout_file: stage.tecl
//	assertions:
//	  - type: file_absent
//	    file: out.ecl
//
// binary files are hex encoded; whitespace between digits is ignored.
//
// # Assertion Types
//
//   - files_equal: two files in the working directory are byte-identical
//   - file_absent: a file was never written
//   - file_contains: a file contains a piece of text
//   - history_count: a history database holds N runs matching where
//
// # Deterministic Output
//
// A step's stdout and stderr are recorded in the result trace with the
// working directory replaced by $WORK. Output that is not valid UTF-8 is
// recorded as its blob digest. Traces serialize to canonical JSON for
// golden file comparison.
package harness
