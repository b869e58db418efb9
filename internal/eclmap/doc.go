// Package eclmap provides the name-mapping service backends consult to turn
// numeric opcodes and global variable numbers into display names and back.
//
// A Set holds two tables, opcodes and globals, loaded from map files:
//
//	!eclmap
//	!ins_names
//	10 ret
//	23 wait
//	!gvar_names
//	-10000 I0
//
// Lines starting with '#' are comments. Loading several files merges them;
// later entries replace earlier ones.
package eclmap
