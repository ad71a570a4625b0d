package compiler

import "scratchvm/internal/bytecode"

// opcodeByName maps the ast.Op command/reporter names listed below to
// their opcodes via bytecode.ByName; a mnemonic not in this list does
// not resolve here even if bytecode.ByName knows it.
var opcodeByName = func() map[string]bytecode.Opcode {
	m := make(map[string]bytecode.Opcode)
	for _, name := range []string{
		"add", "sub", "mul", "div", "mod", "neg", "round", "abs", "floor", "ceil", "sqrt",
		"sin", "cos", "tan", "asin", "acos", "atan", "ln", "log10", "exp", "exp10",
		"eq", "neq", "gt", "ge", "lt", "le", "land", "lor", "lnot",
		"strcat", "charat", "strlen", "strstr", "inc", "dec",
		"movesteps", "turndegrees", "goto", "gotoxy", "glide", "glidexy", "setdir", "lookat",
		"addx", "setx", "addy", "sety", "bounceonedge", "setrotationstyle", "getx", "gety", "getdir",
		"say", "think", "setcostume", "nextcostume", "setbackdrop", "nextbackdrop",
		"addsize", "setsize", "addgraphiceffect", "setgraphiceffect", "cleargraphiceffects",
		"show", "hide", "gotolayer", "movelayer", "getcostume", "getcostumename", "getbackdrop", "getsize",
		"playsound", "playsoundandwait", "stopsound", "addsoundeffect", "setsoundeffect",
		"clearsoundeffects", "addvolume", "setvolume", "getvolume",
		"send", "sendandwait", "findevent",
		"waitsecs", "stopall", "stopself", "stopother", "clone", "deleteclone",
		"touching", "touchingcolor", "colortouching", "distanceto", "ask", "getanswer",
		"keypressed", "mousedown", "mousex", "mousey", "setdragmode", "getloudness",
		"gettimer", "resettimer", "propertyof", "gettime", "getdayssince2000", "getusername",
		"varshow", "varhide",
	} {
		if op, ok := bytecode.ByName(name); ok {
			m[name] = op
		}
	}
	return m
}()
