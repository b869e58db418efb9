// Package asm reads and writes the ECL text form.
//
// The text form is shared by every backend family. A Dialect carries the
// few things that differ between families: which program-level blocks are
// allowed, how rank masks are spelled, the header size used to compute
// instruction offsets and the parameter signatures that type-check
// ordinary instructions.
//
// Example:
//
//	sub Main {
//	    var A;
//	    30:
//	    !EN
//	loop:
//	    wait(60);
//	    jump(loop, 0);
//	}
package asm
