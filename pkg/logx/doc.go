// Package logx is tickwork's structured logging: a small value-type Logger over zerolog.
//
// Console output is readable (short timestamp, file:line caller) unless json is chosen;
// file output is always JSON lines. Task bodies get their logger from the context.
package logx
