package rustgen

import (
	"fmt"
	"strings"

	"github.com/paiml/depyler/internal/diag"
	"github.com/paiml/depyler/internal/hir"
	"github.com/paiml/depyler/internal/modmap"
)

// moduleCallText renders a call to a mapped module's function. The
// heavily used modules get hand-written translations here; everything
// else falls through to the resolution table.
func (c *fnCtx) moduleCallText(e *hir.Expr, module, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	switch module {
	case "os":
		switch fn {
		case "getcwd":
			return "std::env::current_dir().unwrap_or_default().display().to_string()"
		case "getenv":
			if len(d.Args) >= 2 {
				return fmt.Sprintf("std::env::var(%s).unwrap_or_else(|_| %s)",
					c.lookupKeyText(arg(0)), c.valueText(arg(1), hir.StrT))
			}
			return fmt.Sprintf("std::env::var(%s).ok()", c.lookupKeyText(arg(0)))
		}

	case "os.path":
		return c.osPathCallText(e, fn, d)

	case "sys":
		if fn == "exit" {
			code := "0"
			if len(d.Args) > 0 {
				code = fmt.Sprintf("(%s) as i32", c.exprText(arg(0)))
			}
			return fmt.Sprintf("std::process::exit(%s)", code)
		}

	case "json":
		return c.jsonCallText(fn, d)

	case "re":
		return c.regexCallText(e, fn, d)

	case "math":
		return c.mathCallText(e, fn, d)

	case "random":
		return c.randomCallText(e, fn, d)

	case "datetime":
		return c.datetimeCallText(e, fn, d)

	case "hashlib":
		return c.hashlibCallText(e, fn, d)

	case "base64":
		switch fn {
		case "b64encode", "urlsafe_b64encode":
			return fmt.Sprintf("base64::encode(%s)", c.lookupKeyText(arg(0)))
		case "b64decode", "urlsafe_b64decode":
			call := fmt.Sprintf("base64::decode(%s)", c.lookupKeyText(arg(0)))
			if c.canPropagate() {
				return call + "?"
			}
			return call + ".unwrap_or_default()"
		}

	case "itertools":
		return c.itertoolsCallText(e, fn, d)

	case "functools":
		return c.functoolsCallText(e, fn, d)

	case "collections":
		return c.collectionsCallText(e, fn, d)

	case "pathlib":
		switch fn {
		case "Path", "PurePath":
			if len(d.Args) == 0 {
				return "std::path::PathBuf::new()"
			}
			return fmt.Sprintf("std::path::PathBuf::from(%s)", c.exprText(arg(0)))
		}

	case "tempfile":
		return c.tempfileCallText(e, fn, d)

	case "csv":
		switch fn {
		case "reader", "DictReader":
			return fmt.Sprintf("csv::Reader::from_reader(%s)", c.exprText(arg(0)))
		case "writer", "DictWriter":
			return fmt.Sprintf("csv::Writer::from_writer(%s)", c.exprText(arg(0)))
		}

	case "io":
		switch fn {
		case "StringIO":
			if len(d.Args) == 0 {
				return "std::io::Cursor::new(String::new())"
			}
			return fmt.Sprintf("std::io::Cursor::new(%s)", c.valueText(arg(0), hir.StrT))
		case "BytesIO":
			if len(d.Args) == 0 {
				return "std::io::Cursor::new(Vec::new())"
			}
			return fmt.Sprintf("std::io::Cursor::new(%s)", c.exprText(arg(0)))
		}

	case "urllib.parse":
		switch fn {
		case "urlparse":
			call := fmt.Sprintf("url::Url::parse(%s)", c.lookupKeyText(arg(0)))
			if c.canPropagate() {
				return call + "?"
			}
			return call + ".expect(\"invalid URL\")"
		case "urljoin":
			return fmt.Sprintf("url::Url::parse(%s).and_then(|base| base.join(%s)).map(|u| u.to_string()).unwrap_or_default()",
				c.lookupKeyText(arg(0)), c.lookupKeyText(arg(1)))
		}

	case "numpy":
		return c.numpyCallText(e, fn, d)
	}
	return c.genericModuleCall(e, module, fn, d)
}

func (c *fnCtx) osPathCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	root := func() string {
		return fmt.Sprintf("std::path::Path::new(%s)", c.lookupKeyText(arg(0)))
	}
	switch fn {
	case "join":
		out := root()
		for _, a := range d.Args[1:] {
			out += fmt.Sprintf(".join(%s)", c.lookupKeyText(a))
		}
		return out + ".display().to_string()"
	case "exists":
		return root() + ".exists()"
	case "isfile":
		return root() + ".is_file()"
	case "isdir":
		return root() + ".is_dir()"
	case "isabs":
		return root() + ".is_absolute()"
	case "basename":
		return root() + ".file_name().map(|n| n.to_string_lossy().to_string()).unwrap_or_default()"
	case "dirname":
		return root() + ".parent().map(|p| p.display().to_string()).unwrap_or_default()"
	case "abspath":
		return root() + ".canonicalize().map(|p| p.display().to_string()).unwrap_or_default()"
	case "splitext":
		return fmt.Sprintf("{ let p = %s; (p.with_extension(\"\").display().to_string(), p.extension().map(|e| format!(\".{}\", e.to_string_lossy())).unwrap_or_default()) }",
			root())
	case "getsize":
		return fmt.Sprintf("std::fs::metadata(%s).map(|m| m.len() as %s).unwrap_or_default()",
			c.lookupKeyText(arg(0)), c.gen.intTypeText())
	}
	return c.genericModuleCall(e, "os.path", fn, d)
}

func (c *fnCtx) jsonCallText(fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	fallible := func(call string) string {
		if c.canPropagate() {
			return call + "?"
		}
		return call + ".unwrap_or_default()"
	}
	switch fn {
	case "dumps":
		target := "to_string"
		if kw := kwargByName(d.Kwargs, "indent"); kw != nil && !kw.IsNoneLiteral() {
			target = "to_string_pretty"
		}
		return fallible(fmt.Sprintf("serde_json::%s(&%s)", target, c.postfixText(arg(0))))
	case "loads":
		return fallible(fmt.Sprintf("serde_json::from_str::<serde_json::Value>(%s)", c.patternText(arg(0))))
	case "dump":
		return fallible(fmt.Sprintf("serde_json::to_writer(&mut %s, &%s)",
			c.postfixText(arg(1)), c.postfixText(arg(0))))
	case "load":
		return fallible(fmt.Sprintf("serde_json::from_reader::<_, serde_json::Value>(%s)", c.postfixText(arg(0))))
	}
	return fmt.Sprintf("serde_json::%s(%s)", fn, c.plainArgs(d.Args))
}

// regexNewText compiles a pattern expression, routing through
// RegexBuilder when a case-insensitivity flag is present.
func (c *fnCtx) regexNewText(pattern, flags *hir.Expr) string {
	if flags != nil && c.isIgnoreCaseFlag(flags) {
		return fmt.Sprintf("regex::RegexBuilder::new(%s).case_insensitive(true).build().unwrap()",
			c.patternText(pattern))
	}
	return fmt.Sprintf("regex::Regex::new(%s).unwrap()", c.patternText(pattern))
}

func (c *fnCtx) isIgnoreCaseFlag(e *hir.Expr) bool {
	switch v := e.Data.(type) {
	case hir.AttributeData:
		if mod, ok := c.gen.moduleFor(v.Value); ok && mod == "re" {
			return v.Attr == "IGNORECASE" || v.Attr == "I"
		}
	case hir.VarData:
		return c.gen.importedItems[v.Name] == "re" &&
			(c.gen.itemNames[v.Name] == "IGNORECASE" || c.gen.itemNames[v.Name] == "I")
	}
	return false
}

func (c *fnCtx) regexCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	var flags *hir.Expr
	if len(d.Args) >= 3 {
		flags = arg(2)
	} else if kw := kwargByName(d.Kwargs, "flags"); kw != nil {
		flags = kw
	}
	re := func() string { return c.regexNewText(arg(0), flags) }
	switch fn {
	case "compile":
		return c.regexNewText(arg(0), arg(1))
	case "search":
		return fmt.Sprintf("%s.find(%s).map(|m| m.as_str().to_string())", re(), c.patternArg(arg(1)))
	case "match":
		return fmt.Sprintf("%s.is_match(%s)", re(), c.patternArg(arg(1)))
	case "fullmatch":
		return fmt.Sprintf("%s.is_match(%s)", re(), c.patternArg(arg(1)))
	case "findall":
		return fmt.Sprintf("%s.find_iter(%s).map(|m| m.as_str().to_string()).collect::<Vec<_>>()",
			re(), c.patternArg(arg(1)))
	case "finditer":
		return fmt.Sprintf("%s.find_iter(%s).map(|m| m.as_str().to_string()).collect::<Vec<_>>()",
			re(), c.patternArg(arg(1)))
	case "sub":
		if len(d.Args) >= 4 {
			flags = arg(3)
			re = func() string { return c.regexNewText(arg(0), flags) }
		}
		return fmt.Sprintf("%s.replace_all(%s, %s).to_string()",
			re(), c.patternArg(arg(2)), c.patternText(arg(1)))
	case "split":
		return fmt.Sprintf("%s.split(%s).map(|s| s.to_string()).collect::<Vec<_>>()",
			re(), c.patternArg(arg(1)))
	case "escape":
		return fmt.Sprintf("regex::escape(%s)", c.patternArg(arg(0)))
	}
	return c.genericModuleCall(e, "re", fn, d)
}

// rawSearchText renders a regex search as the bare find call, leaving
// the match handle wrapped for an enclosing if-let to open. Covers both
// the module form and searches on a compiled pattern.
func (c *fnCtx) rawSearchText(e *hir.Expr) (string, bool) {
	var d hir.CallData
	switch p := e.Data.(type) {
	case hir.MethodCallData:
		if p.Method != "search" {
			return "", false
		}
		if mod, ok := c.gen.moduleFor(p.Object); ok {
			if mod != "re" {
				return "", false
			}
			d = hir.CallData{Func: p.Method, Args: p.Args, Kwargs: p.Kwargs}
			break
		}
		if len(p.Args) < 1 || !c.exprType(p.Object).IsUnknown() {
			return "", false
		}
		return fmt.Sprintf("%s.find(%s)", c.postfixText(p.Object), c.patternArg(p.Args[0])), true
	case hir.CallData:
		if mod, ok := c.gen.importedItems[p.Func]; !ok || mod != "re" || c.gen.itemNames[p.Func] != "search" {
			return "", false
		}
		d = p
	default:
		return "", false
	}
	if len(d.Args) < 2 {
		return "", false
	}
	var flags *hir.Expr
	if len(d.Args) >= 3 {
		flags = d.Args[2]
	} else if kw := kwargByName(d.Kwargs, "flags"); kw != nil {
		flags = kw
	}
	return fmt.Sprintf("%s.find(%s)", c.regexNewText(d.Args[0], flags), c.patternArg(d.Args[1])), true
}

// patternArg is like patternText but always borrows; the regex methods
// take &str even for literals already in scope.
func (c *fnCtx) patternArg(e *hir.Expr) string {
	if isStrLit(e) || c.isBorrowedStr(e) {
		return c.exprText(e)
	}
	return "&" + c.postfixText(e)
}

func (c *fnCtx) mathCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	f0 := func() string { return fmt.Sprintf("((%s) as f64)", c.exprText(arg(0))) }
	method := map[string]string{
		"sqrt": "sqrt", "sin": "sin", "cos": "cos", "tan": "tan",
		"asin": "asin", "acos": "acos", "atan": "atan",
		"floor": "floor", "ceil": "ceil", "exp": "exp", "fabs": "abs",
		"log2": "log2", "log10": "log10", "trunc": "trunc",
		"degrees": "to_degrees", "radians": "to_radians",
	}
	if m, ok := method[fn]; ok {
		return fmt.Sprintf("%s.%s()", f0(), m)
	}
	switch fn {
	case "log":
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.log((%s) as f64)", f0(), c.exprText(arg(1)))
		}
		return f0() + ".ln()"
	case "pow":
		return fmt.Sprintf("%s.powf((%s) as f64)", f0(), c.exprText(arg(1)))
	case "hypot":
		return fmt.Sprintf("%s.hypot((%s) as f64)", f0(), c.exprText(arg(1)))
	case "atan2":
		return fmt.Sprintf("%s.atan2((%s) as f64)", f0(), c.exprText(arg(1)))
	case "fmod":
		return fmt.Sprintf("%s %% ((%s) as f64)", f0(), c.exprText(arg(1)))
	case "isqrt":
		return fmt.Sprintf("%s.sqrt().floor() as %s", f0(), c.gen.intTypeText())
	case "factorial":
		return fmt.Sprintf("(1..=(%s)).product::<%s>()", c.exprText(arg(0)), c.gen.intTypeText())
	case "gcd":
		return fmt.Sprintf("{ let (mut a, mut b) = ((%s).abs(), (%s).abs()); while b != 0 { let t = b; b = a %% b; a = t; } a }",
			c.exprText(arg(0)), c.exprText(arg(1)))
	case "isnan":
		return f0() + ".is_nan()"
	case "isinf":
		return f0() + ".is_infinite()"
	}
	return c.genericModuleCall(e, "math", fn, d)
}

func (c *fnCtx) randomCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	switch fn {
	case "random":
		c.gen.need(needRandRng)
		return "rand::thread_rng().gen::<f64>()"
	case "randint":
		c.gen.need(needRandRng)
		return fmt.Sprintf("rand::thread_rng().gen_range(%s..=%s)",
			c.operandText(arg(0)), c.operandText(arg(1)))
	case "randrange":
		c.gen.need(needRandRng)
		if len(d.Args) >= 2 {
			return fmt.Sprintf("rand::thread_rng().gen_range(%s..%s)",
				c.operandText(arg(0)), c.operandText(arg(1)))
		}
		return fmt.Sprintf("rand::thread_rng().gen_range(0..%s)", c.operandText(arg(0)))
	case "uniform":
		c.gen.need(needRandRng)
		return fmt.Sprintf("rand::thread_rng().gen_range(((%s) as f64)..=((%s) as f64))",
			c.exprText(arg(0)), c.exprText(arg(1)))
	case "choice":
		c.gen.need(needRandSlice)
		return fmt.Sprintf("%s.choose(&mut rand::thread_rng()).cloned().expect(\"cannot choose from an empty sequence\")",
			c.postfixText(arg(0)))
	case "shuffle":
		c.gen.need(needRandSlice)
		return fmt.Sprintf("%s.shuffle(&mut rand::thread_rng())", c.postfixText(arg(0)))
	case "sample":
		c.gen.need(needRandSlice)
		return fmt.Sprintf("%s.choose_multiple(&mut rand::thread_rng(), (%s) as usize).cloned().collect::<Vec<_>>()",
			c.postfixText(arg(0)), c.exprText(arg(1)))
	case "seed":
		diag.ReportWarning(c.gen.reporter, diag.EmiUnknownStrategy, e.Span,
			"seeding the thread rng is not supported").Emit()
		return "()"
	}
	return c.genericModuleCall(e, "random", fn, d)
}

func (c *fnCtx) datetimeCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	ymd := func() string {
		return fmt.Sprintf("chrono::NaiveDate::from_ymd_opt((%s) as i32, (%s) as u32, (%s) as u32).expect(\"invalid date\")",
			c.exprText(arg(0)), c.exprText(arg(1)), c.exprText(arg(2)))
	}
	switch fn {
	case "date":
		if len(d.Args) >= 3 {
			return ymd()
		}
	case "datetime":
		if len(d.Args) >= 6 {
			return fmt.Sprintf("%s.and_hms_opt((%s) as u32, (%s) as u32, (%s) as u32).expect(\"invalid time\")",
				ymd(), c.exprText(arg(3)), c.exprText(arg(4)), c.exprText(arg(5)))
		}
		if len(d.Args) >= 3 {
			return ymd() + ".and_hms_opt(0, 0, 0).expect(\"invalid time\")"
		}
	case "timedelta":
		units := []struct{ py, rust string }{
			{"weeks", "weeks"}, {"days", "days"}, {"hours", "hours"},
			{"minutes", "minutes"}, {"seconds", "seconds"},
			{"milliseconds", "milliseconds"}, {"microseconds", "microseconds"},
		}
		var parts []string
		for _, u := range units {
			if kw := kwargByName(d.Kwargs, u.py); kw != nil {
				parts = append(parts, fmt.Sprintf("chrono::Duration::%s(%s)", u.rust, c.exprText(kw)))
			}
		}
		if len(d.Args) > 0 {
			parts = append([]string{fmt.Sprintf("chrono::Duration::days(%s)", c.exprText(arg(0)))}, parts...)
		}
		if len(parts) == 0 {
			return "chrono::Duration::zero()"
		}
		return strings.Join(parts, " + ")
	}
	return c.genericModuleCall(e, "datetime", fn, d)
}

func (c *fnCtx) hashlibCallText(e *hir.Expr, fn string, d hir.CallData) string {
	types := map[string]string{
		"sha256": "Sha256", "sha512": "Sha512", "sha224": "Sha224", "sha384": "Sha384",
	}
	name, ok := types[fn]
	if !ok {
		diag.ReportWarning(c.gen.reporter, diag.EmiUnknownStrategy, e.Span,
			fmt.Sprintf("hash algorithm %s has no translation", fn)).Emit()
		return "Default::default()"
	}
	c.gen.need(needSha2Digest)
	if len(d.Args) == 0 {
		return fmt.Sprintf("sha2::%s::new()", name)
	}
	return fmt.Sprintf("{ let mut hasher = sha2::%s::new(); hasher.update(%s); hasher }",
		name, c.lookupKeyText(d.Args[0]))
}

func (c *fnCtx) itertoolsCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	switch fn {
	case "chain":
		if len(d.Args) == 0 {
			return "std::iter::empty()"
		}
		out := c.iterArgChain(arg(0))
		for _, a := range d.Args[1:] {
			out += fmt.Sprintf(".chain(%s)", c.iterArgChain(a))
		}
		return out
	case "product":
		if len(d.Args) == 2 {
			c.gen.need(needItertools)
			return fmt.Sprintf("%s.cartesian_product(%s).collect::<Vec<_>>()",
				c.iterArgChain(arg(0)), c.iterArgChain(arg(1)))
		}
	case "combinations":
		c.gen.need(needItertools)
		return fmt.Sprintf("%s.combinations((%s) as usize).collect::<Vec<_>>()",
			c.iterArgChain(arg(0)), c.exprText(arg(1)))
	case "permutations":
		c.gen.need(needItertools)
		if len(d.Args) >= 2 {
			return fmt.Sprintf("%s.permutations((%s) as usize).collect::<Vec<_>>()",
				c.iterArgChain(arg(0)), c.exprText(arg(1)))
		}
		return fmt.Sprintf("{ let items = %s.collect::<Vec<_>>(); let k = items.len(); items.into_iter().permutations(k).collect::<Vec<_>>() }",
			c.iterArgChain(arg(0)))
	case "takewhile":
		c.gen.need(needItertools)
		return fmt.Sprintf("%s.take_while(|x| { let x = x.clone(); %s })",
			c.iterArgChain(arg(1)), c.predicateText(arg(0), "x"))
	case "dropwhile":
		c.gen.need(needItertools)
		return fmt.Sprintf("%s.skip_while(|x| { let x = x.clone(); %s })",
			c.iterArgChain(arg(1)), c.predicateText(arg(0), "x"))
	case "accumulate":
		c.gen.need(needItertools)
		return fmt.Sprintf("%s.scan(None, |acc, x| { let next = match acc { Some(a) => *a + x, None => x }; *acc = Some(next); Some(next) }).collect::<Vec<_>>()",
			c.iterArgChain(arg(0)))
	case "repeat":
		if len(d.Args) >= 2 {
			return fmt.Sprintf("std::iter::repeat(%s).take((%s) as usize)",
				c.exprText(arg(0)), c.exprText(arg(1)))
		}
		return fmt.Sprintf("std::iter::repeat(%s)", c.exprText(arg(0)))
	case "count":
		start := "0"
		if len(d.Args) > 0 {
			start = c.exprText(arg(0))
		}
		return fmt.Sprintf("(%s..)", start)
	}
	return c.genericModuleCall(e, "itertools", fn, d)
}

func (c *fnCtx) functoolsCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	if fn == "reduce" && len(d.Args) >= 2 {
		chain := c.iterArgChain(arg(1))
		closure := c.callableText(arg(0))
		if len(d.Args) >= 3 {
			return fmt.Sprintf("%s.fold(%s, %s)", chain, c.exprText(arg(2)), closure)
		}
		return fmt.Sprintf("%s.reduce(%s).unwrap_or_default()", chain, closure)
	}
	diag.ReportWarning(c.gen.reporter, diag.EmiUnknownStrategy, e.Span,
		fmt.Sprintf("functools.%s has no translation", fn)).Emit()
	return "Default::default()"
}

func (c *fnCtx) collectionsCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	switch fn {
	case "defaultdict", "OrderedDict":
		c.gen.need(needHashMap)
		return "HashMap::new()"
	case "Counter":
		c.gen.need(needHashMap)
		if len(d.Args) == 0 {
			return "HashMap::new()"
		}
		return fmt.Sprintf("{ let mut counts: HashMap<_, %s> = HashMap::new(); for item in %s { *counts.entry(item).or_insert(0) += 1; } counts }",
			c.gen.intTypeText(), c.iterArgChain(arg(0)))
	case "deque":
		c.gen.need(needVecDeque)
		if len(d.Args) == 0 {
			return "VecDeque::new()"
		}
		return fmt.Sprintf("%s.collect::<VecDeque<_>>()", c.iterArgChain(arg(0)))
	}
	return c.genericModuleCall(e, "collections", fn, d)
}

func (c *fnCtx) tempfileCallText(e *hir.Expr, fn string, d hir.CallData) string {
	fallible := func(call, what string) string {
		if c.canPropagate() {
			return call + "?"
		}
		return fmt.Sprintf("%s.expect(\"failed to create %s\")", call, what)
	}
	switch fn {
	case "NamedTemporaryFile":
		return fallible("tempfile::NamedTempFile::new()", "temp file")
	case "TemporaryDirectory", "mkdtemp":
		return fallible("tempfile::tempdir()", "temp dir")
	case "TemporaryFile", "mkstemp":
		return fallible("tempfile::tempfile()", "temp file")
	}
	return c.genericModuleCall(e, "tempfile", fn, d)
}

func (c *fnCtx) numpyCallText(e *hir.Expr, fn string, d hir.CallData) string {
	arg := func(i int) *hir.Expr {
		if i < len(d.Args) {
			return d.Args[i]
		}
		return nil
	}
	switch fn {
	case "array":
		return fmt.Sprintf("trueno::Vector::from_slice(&%s)", c.postfixText(arg(0)))
	case "zeros":
		return fmt.Sprintf("trueno::Vector::zeros((%s) as usize)", c.exprText(arg(0)))
	case "ones":
		return fmt.Sprintf("trueno::Vector::ones((%s) as usize)", c.exprText(arg(0)))
	case "dot":
		return fmt.Sprintf("%s.dot(&%s)", c.postfixText(arg(0)), c.postfixText(arg(1)))
	case "matmul":
		return fmt.Sprintf("%s.matmul(&%s)", c.postfixText(arg(0)), c.postfixText(arg(1)))
	}
	return c.genericModuleCall(e, "numpy", fn, d)
}

// genericModuleCall resolves through the table: the item's Rust
// spelling joined onto the module's crate path, instantiated per its
// registered constructor pattern.
func (c *fnCtx) genericModuleCall(e *hir.Expr, module, fn string, d hir.CallData) string {
	mapping, ok := c.gen.modules.Lookup(module)
	if !ok {
		diag.ReportWarning(c.gen.reporter, diag.EmiUnknownStrategy, e.Span,
			fmt.Sprintf("no translation for module %s", module)).Emit()
		return "Default::default()"
	}
	target, ok := mapping.Items[fn]
	if !ok || target == "" {
		diag.ReportWarning(c.gen.reporter, diag.EmiUnknownStrategy, e.Span,
			fmt.Sprintf("no translation for %s.%s", module, fn)).Emit()
		return "Default::default()"
	}
	path := target
	if mapping.RustPath != "" && !strings.HasPrefix(target, "std::") {
		path = mapping.RustPath + "::" + target
	}
	args := c.plainArgs(d.Args)
	last := target
	if i := strings.LastIndex(target, "::"); i >= 0 {
		last = target[i+2:]
	}
	if ctor, ok := c.gen.modules.ConstructorFor(last); ok {
		switch ctor.Pattern {
		case modmap.ConstructNew:
			return fmt.Sprintf("%s::new(%s)", path, args)
		case modmap.ConstructMethod:
			return fmt.Sprintf("%s::%s(%s)", path, ctor.Method, args)
		}
	}
	return fmt.Sprintf("%s(%s)", path, args)
}
