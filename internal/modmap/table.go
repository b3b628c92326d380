package modmap

// defaultTable builds the built-in module resolution table. Versions are
// crate requirements, not exact pins.
func defaultTable() map[string]Mapping {
	return map[string]Mapping{
		"os": {
			RustPath: "std",
			Items: map[string]string{
				"getcwd":  "env::current_dir",
				"environ": "env::vars",
				"path":    "path::Path",
				"getenv":  "env::var",
			},
		},
		"os.path": {
			RustPath: "std::path",
			Items: map[string]string{
				"join":     "Path::join",
				"exists":   "Path::exists",
				"basename": "Path::file_name",
				"dirname":  "Path::parent",
				// splitext, split and normpath are rewritten inline; the
				// bare Path keeps the use statement valid.
				"splitext": "Path",
				"split":    "Path",
				"normpath": "Path",
				"isfile":   "Path::is_file",
				"isdir":    "Path::is_dir",
				"isabs":    "Path::is_absolute",
				"abspath":  "Path::canonicalize",
			},
		},
		"sys": {
			RustPath: "std",
			Items: map[string]string{
				"argv":   "env::args",
				"exit":   "process::exit",
				"stdin":  "io::stdin",
				"stdout": "io::stdout",
				"stderr": "io::stderr",
			},
		},
		"io": {
			RustPath: "std::io",
			Items: map[string]string{
				"BufferedReader": "BufReader",
				"BufferedWriter": "BufWriter",
				"BytesIO":        "Cursor",
				"StringIO":       "Cursor",
			},
			Constructors: map[string]Constructor{
				"BufReader": {Pattern: ConstructNew},
				"BufWriter": {Pattern: ConstructNew},
				"Cursor":    {Pattern: ConstructNew},
			},
		},
		"json": {
			RustPath: "serde_json",
			External: true,
			Version:  "1.0",
			Items: map[string]string{
				"loads": "from_str",
				"dumps": "to_string",
				"load":  "from_reader",
				"dump":  "to_writer",
			},
		},
		"re": {
			RustPath: "regex",
			External: true,
			Version:  "1.10",
			Items: map[string]string{
				"compile":  "Regex::new",
				"search":   "Regex::find",
				"match":    "Regex::is_match",
				"findall":  "Regex::find_iter",
				"finditer": "Regex::find_iter",
				"Pattern":  "Regex",
				"sub":      "Regex::replace_all",
				"subn":     "Regex::replace_all",
				"split":    "Regex::split",
				// Flags become inline pattern prefixes.
				"IGNORECASE": "(?i)",
				"I":          "(?i)",
				"MULTILINE":  "(?m)",
				"M":          "(?m)",
				"DOTALL":     "(?s)",
				"S":          "(?s)",
				"VERBOSE":    "(?x)",
				"X":          "(?x)",
			},
			Constructors: map[string]Constructor{
				"Regex": {Pattern: ConstructMethod, Method: "new"},
			},
		},
		"datetime": {
			RustPath: "chrono",
			External: true,
			Version:  "0.4",
			Items: map[string]string{
				"datetime":  "DateTime",
				"date":      "NaiveDate",
				"time":      "NaiveTime",
				"timedelta": "Duration",
			},
			Constructors: map[string]Constructor{
				"DateTime":  {Pattern: ConstructMethod, Method: "now"},
				"NaiveDate": {Pattern: ConstructMethod, Method: "from_ymd_opt"},
				"NaiveTime": {Pattern: ConstructMethod, Method: "from_hms_opt"},
				"Duration":  {Pattern: ConstructMethod, Method: "seconds"},
			},
		},
		"typing": {
			// Handled entirely by the type mapper; no use statements.
			Items: map[string]string{
				"List":     "Vec",
				"Dict":     "HashMap",
				"Set":      "HashSet",
				"Tuple":    "",
				"Optional": "Option",
				"Union":    "",
				"Any":      "",
			},
		},
		"collections": {
			RustPath: "std::collections",
			Items: map[string]string{
				"defaultdict": "HashMap",
				"Counter":     "HashMap",
				"deque":       "VecDeque",
				"OrderedDict": "HashMap",
			},
			Constructors: map[string]Constructor{
				"defaultdict": {Pattern: ConstructNew},
				"Counter":     {Pattern: ConstructNew},
				"deque":       {Pattern: ConstructNew},
				"OrderedDict": {Pattern: ConstructNew},
				"VecDeque":    {Pattern: ConstructNew},
				"HashMap":     {Pattern: ConstructNew},
				"HashSet":     {Pattern: ConstructNew},
				"BTreeMap":    {Pattern: ConstructNew},
				"BTreeSet":    {Pattern: ConstructNew},
			},
		},
		"math": {
			RustPath: "std::f64",
			Items: map[string]string{
				"sqrt":  "sqrt",
				"sin":   "sin",
				"cos":   "cos",
				"tan":   "tan",
				"pi":    "consts::PI",
				"e":     "consts::E",
				"isqrt": "isqrt",
			},
		},
		"random": {
			RustPath: "rand",
			External: true,
			Version:  "0.8",
			Items: map[string]string{
				"random":    "random",
				"randint":   "gen_range",
				"choice":    "choose",
				"shuffle":   "shuffle",
				"uniform":   "gen_range",
				"seed":      "SeedableRng::seed_from_u64",
				"randrange": "gen_range",
				"sample":    "choose_multiple",
				"gauss":     "Normal::sample",
			},
		},
		"itertools": {
			RustPath: "itertools",
			External: true,
			Version:  "0.11",
			Items: map[string]string{
				"chain":        "chain",
				"combinations": "combinations",
				"permutations": "permutations",
				"product":      "iproduct",
				"groupby":      "Itertools",
				"accumulate":   "scan",
				"takewhile":    "take_while",
				"dropwhile":    "drop_while",
				"cycle":        "cycle",
				"repeat":       "repeat_n",
			},
		},
		"functools": {
			RustPath: "std",
			Items: map[string]string{
				// All four become iterator methods or closures inline.
				"reduce":    "",
				"partial":   "",
				"lru_cache": "",
				"wraps":     "",
			},
		},
		"hashlib": {
			RustPath: "sha2",
			External: true,
			Version:  "0.10",
			Items: map[string]string{
				"sha256": "Sha256",
				"sha512": "Sha512",
				"sha1":   "Sha1",
				"md5":    "Md5",
			},
		},
		"base64": {
			RustPath: "base64",
			External: true,
			Version:  "0.21",
			Items: map[string]string{
				"b64encode":         "encode",
				"b64decode":         "decode",
				"urlsafe_b64encode": "encode_config",
				"urlsafe_b64decode": "decode_config",
			},
		},
		"urllib.parse": {
			RustPath: "url",
			External: true,
			Version:  "2.5",
			Items: map[string]string{
				"urlparse": "Url::parse",
				"urljoin":  "Url::join",
				"quote":    "percent_encoding::percent_encode",
				"unquote":  "percent_encoding::percent_decode",
			},
		},
		"pathlib": {
			RustPath: "std::path",
			Items: map[string]string{
				"Path":     "PathBuf",
				"PurePath": "Path",
			},
			Constructors: map[string]Constructor{
				"PathBuf": {Pattern: ConstructMethod, Method: "from"},
				"Path":    {Pattern: ConstructMethod, Method: "new"},
			},
		},
		"tempfile": {
			RustPath: "tempfile",
			External: true,
			Version:  "3.0",
			Items: map[string]string{
				"NamedTemporaryFile": "NamedTempFile",
				"TemporaryDirectory": "TempDir",
				"mkstemp":            "tempfile",
				"mkdtemp":            "tempdir",
			},
			Constructors: map[string]Constructor{
				"NamedTempFile": {Pattern: ConstructNew},
				"TempDir":       {Pattern: ConstructNew},
				"tempfile":      {Pattern: ConstructFunction},
				"tempdir":       {Pattern: ConstructFunction},
			},
		},
		"csv": {
			RustPath: "csv",
			External: true,
			Version:  "1.0",
			Items: map[string]string{
				"reader":     "Reader",
				"writer":     "Writer",
				"DictReader": "Reader",
				"DictWriter": "Writer",
			},
		},
		"numpy": {
			RustPath: "trueno",
			External: true,
			Version:  "0.7",
			Items: map[string]string{
				"array":     "Vector::from_slice",
				"zeros":     "Vector::zeros",
				"ones":      "Vector::ones",
				"empty":     "Vector::zeros",
				"arange":    "Vector::arange",
				"linspace":  "Vector::linspace",
				"add":       "Vector::add",
				"subtract":  "Vector::sub",
				"multiply":  "Vector::mul",
				"divide":    "Vector::div",
				"sqrt":      "Vector::sqrt",
				"exp":       "Vector::exp",
				"log":       "Vector::ln",
				"sin":       "Vector::sin",
				"cos":       "Vector::cos",
				"abs":       "Vector::abs",
				"dot":       "Vector::dot",
				"matmul":    "Matrix::matmul",
				"sum":       "Vector::sum",
				"mean":      "Vector::mean",
				"max":       "Vector::max",
				"min":       "Vector::min",
				"std":       "Vector::std",
				"var":       "Vector::var",
				"argmax":    "Vector::argmax",
				"argmin":    "Vector::argmin",
				"reshape":   "Matrix::reshape",
				"transpose": "Matrix::transpose",
				"flatten":   "Vector::flatten",
			},
		},
		"numpy.linalg": {
			RustPath: "trueno::linalg",
			External: true,
			Version:  "0.7",
			Items: map[string]string{
				"norm":  "norm",
				"inv":   "inv",
				"det":   "det",
				"eig":   "eig",
				"svd":   "svd",
				"solve": "solve",
			},
		},
		"sklearn.linear_model": {
			RustPath: "aprender::linear",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"LinearRegression":   "LinearRegression",
				"LogisticRegression": "LogisticRegression",
				"Ridge":              "Ridge",
				"Lasso":              "Lasso",
				"ElasticNet":         "ElasticNet",
			},
			Constructors: map[string]Constructor{
				"LinearRegression":   {Pattern: ConstructNew},
				"LogisticRegression": {Pattern: ConstructNew},
			},
		},
		"sklearn.cluster": {
			RustPath: "aprender::cluster",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"KMeans":                  "KMeans",
				"DBSCAN":                  "DBSCAN",
				"AgglomerativeClustering": "Agglomerative",
			},
			Constructors: map[string]Constructor{
				"KMeans": {Pattern: ConstructNew},
			},
		},
		"sklearn.tree": {
			RustPath: "aprender::tree",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"DecisionTreeClassifier": "DecisionTree",
				"DecisionTreeRegressor":  "DecisionTreeRegressor",
			},
		},
		"sklearn.ensemble": {
			RustPath: "aprender::ensemble",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"RandomForestClassifier":     "RandomForest",
				"RandomForestRegressor":      "RandomForestRegressor",
				"GradientBoostingClassifier": "GradientBoosting",
			},
		},
		"sklearn.preprocessing": {
			RustPath: "aprender::preprocessing",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"StandardScaler": "StandardScaler",
				"MinMaxScaler":   "MinMaxScaler",
				"LabelEncoder":   "LabelEncoder",
				"OneHotEncoder":  "OneHotEncoder",
			},
		},
		"sklearn.decomposition": {
			RustPath: "aprender::decomposition",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"PCA":          "PCA",
				"TruncatedSVD": "TruncatedSVD",
			},
		},
		"sklearn.model_selection": {
			RustPath: "aprender::model_selection",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"train_test_split": "train_test_split",
				"KFold":            "KFold",
				"cross_val_score":  "cross_val_score",
				"GridSearchCV":     "GridSearchCV",
			},
		},
		"sklearn.metrics": {
			RustPath: "aprender::metrics",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"accuracy_score":     "accuracy",
				"precision_score":    "precision",
				"recall_score":       "recall",
				"f1_score":           "f1",
				"confusion_matrix":   "confusion_matrix",
				"mean_squared_error": "mse",
				"r2_score":           "r2",
			},
		},
		"subprocess": {
			RustPath: "std::process",
			Items: map[string]string{
				"run":              "Command",
				"Popen":            "Command",
				"call":             "Command",
				"check_call":       "Command",
				"check_output":     "Command",
				"PIPE":             "Stdio::piped",
				"STDOUT":           "Stdio::inherit",
				"DEVNULL":          "Stdio::null",
				"CompletedProcess": "Output",
			},
			Constructors: map[string]Constructor{
				"Command": {Pattern: ConstructMethod, Method: "new"},
			},
		},
		"argparse": {
			RustPath: "clap",
			External: true,
			Version:  "4.5",
			Items: map[string]string{
				"ArgumentParser": "Parser",
			},
		},
		"threading": {
			RustPath: "std::thread",
			Items: map[string]string{
				"Thread":           "spawn",
				"current_thread":   "current",
				"Lock":             "Mutex",
				"RLock":            "Mutex",
				"Event":            "Condvar",
				"Condition":        "Condvar",
				"Semaphore":        "Semaphore",
				"BoundedSemaphore": "Semaphore",
				"Barrier":          "Barrier",
			},
		},
		"asyncio": {
			RustPath: "tokio",
			External: true,
			Version:  "1.35",
			Items: map[string]string{
				"run":            "runtime::Runtime::block_on",
				"create_task":    "spawn",
				"sleep":          "time::sleep",
				"wait_for":       "time::timeout",
				"gather":         "join!",
				"wait":           "select!",
				"Queue":          "sync::mpsc::channel",
				"get_event_loop": "runtime::Handle::current",
				"new_event_loop": "runtime::Runtime::new",
			},
		},
		"struct": {
			RustPath: "byteorder",
			External: true,
			Version:  "1.5",
			Items: map[string]string{
				"pack":        "WriteBytesExt",
				"unpack":      "ReadBytesExt",
				"pack_into":   "WriteBytesExt",
				"unpack_from": "ReadBytesExt",
				"calcsize":    "std::mem::size_of",
				"Struct":      "ByteOrder",
			},
		},
		"statistics": {
			RustPath: "statrs",
			External: true,
			Version:  "0.16",
			Items: map[string]string{
				"mean":      "statistics::Statistics::mean",
				"median":    "statistics::Statistics::median",
				"mode":      "statistics::Statistics::mode",
				"stdev":     "statistics::Statistics::std_dev",
				"variance":  "statistics::Statistics::variance",
				"pstdev":    "statistics::Statistics::population_std_dev",
				"pvariance": "statistics::Statistics::population_variance",
				"quantiles": "statistics::Statistics::percentile",
			},
		},
		"logging": {
			RustPath: "log",
			External: true,
			Version:  "0.4",
			Items: map[string]string{
				"debug":    "debug!",
				"info":     "info!",
				"warning":  "warn!",
				"warn":     "warn!",
				"error":    "error!",
				"critical": "error!",
				// Setup calls are rewritten to env_logger inline.
				"basicConfig": "",
				"getLogger":   "",
				"DEBUG":       "log::Level::Debug",
				"INFO":        "log::Level::Info",
				"WARNING":     "log::Level::Warn",
				"ERROR":       "log::Level::Error",
				"CRITICAL":    "log::Level::Error",
			},
		},
		"configparser": {
			RustPath: "config",
			External: true,
			Version:  "0.14",
			Items: map[string]string{
				"ConfigParser":     "Config",
				"RawConfigParser":  "Config",
				"SafeConfigParser": "Config",
			},
			Constructors: map[string]Constructor{
				"Config": {Pattern: ConstructMethod, Method: "builder"},
			},
		},
		"unittest": {
			// Rust test attributes need no imports.
			Items: map[string]string{
				"TestCase":        "",
				"assertEqual":     "assert_eq!",
				"assertNotEqual":  "assert_ne!",
				"assertTrue":      "assert!",
				"assertFalse":     "assert!",
				"assertIsNone":    "assert!",
				"assertIsNotNone": "assert!",
				"assertIn":        "assert!",
				"assertNotIn":     "assert!",
				"assertRaises":    "assert!",
				"main":            "",
			},
		},
		"traceback": {
			RustPath: "backtrace",
			External: true,
			Version:  "0.3",
			Items: map[string]string{
				"print_exc":  "Backtrace::capture",
				"format_exc": "Backtrace::capture",
				"print_tb":   "Backtrace::capture",
				"format_tb":  "Backtrace::capture",
				"extract_tb": "Backtrace::capture",
			},
		},
		"contextlib": {
			// RAII covers these; nothing to import.
			Items: map[string]string{
				"contextmanager": "",
				"closing":        "",
				"suppress":       "",
				"nullcontext":    "",
			},
		},
	}
}
