package xref

// Persisted index format version. Downstream consumers must check the pair
// before trusting a stored entry.
const (
	MajorVersion = 21
	MinorVersion = 0
)

// Include records one inclusion directive: the zero-based line of the
// directive and the resolved absolute path of the included file.
type Include struct {
	Line         int32  `json:"line"`
	ResolvedPath string `json:"resolved_path"`
}

// LocalFile maps a local file index to an absolute path. Use records whose
// FileID is >= 0 refer to entries of this table.
type LocalFile struct {
	ID   int32  `json:"id"`
	Path string `json:"path"`
}

// IndexFile is the cross-reference index of one physical file produced by
// one indexing pass. It is created on first admission of its file, mutated
// throughout the pass, finalized at pass end and never mutated afterward.
type IndexFile struct {
	Path      string `json:"path"`
	Mtime     int64  `json:"mtime"`
	Content   string `json:"-"`
	NoLinkage bool   `json:"no_linkage,omitempty"`
	// MainFile is the pass's main input; Args the invocation arguments.
	MainFile string   `json:"main_file"`
	Args     []string `json:"args,omitempty"`

	Language      Language         `json:"language"`
	Includes      []Include        `json:"includes,omitempty"`
	SkippedRanges []Range          `json:"skipped_ranges,omitempty"`
	Dependencies  map[string]int64 `json:"dependencies,omitempty"`

	USR2Func map[Usr]*IndexFunc `json:"usr2func"`
	USR2Type map[Usr]*IndexType `json:"usr2type"`
	USR2Var  map[Usr]*IndexVar  `json:"usr2var"`

	// FileTable is the flattened local-file table, ordered by ID. During the
	// pass the mapping is kept by engine-internal handle and flattened once
	// at finalization.
	FileTable []LocalFile `json:"file_table,omitempty"`

	localByHandle map[int32]LocalFile
}

// NewIndexFile creates an empty index for one file.
func NewIndexFile(path, content string, noLinkage bool) *IndexFile {
	return &IndexFile{
		Path:          path,
		Content:       content,
		NoLinkage:     noLinkage,
		Dependencies:  make(map[string]int64),
		USR2Func:      make(map[Usr]*IndexFunc),
		USR2Type:      make(map[Usr]*IndexType),
		USR2Var:       make(map[Usr]*IndexVar),
		localByHandle: make(map[int32]LocalFile),
	}
}

// ToFunc returns the function entity for usr, creating it on first use.
func (f *IndexFile) ToFunc(usr Usr) *IndexFunc {
	fn, ok := f.USR2Func[usr]
	if !ok {
		fn = &IndexFunc{Usr: usr}
		f.USR2Func[usr] = fn
	}
	return fn
}

// ToType returns the type entity for usr, creating it on first use.
func (f *IndexFile) ToType(usr Usr) *IndexType {
	t, ok := f.USR2Type[usr]
	if !ok {
		t = &IndexType{Usr: usr}
		f.USR2Type[usr] = t
	}
	return t
}

// ToVar returns the variable entity for usr, creating it on first use.
func (f *IndexFile) ToVar(usr Usr) *IndexVar {
	v, ok := f.USR2Var[usr]
	if !ok {
		v = &IndexVar{Usr: usr}
		f.USR2Var[usr] = v
	}
	return v
}

// LocalFileID returns the local index for an engine file handle, or -1 if
// the handle has not been registered.
func (f *IndexFile) LocalFileID(handle int32) int32 {
	if lf, ok := f.localByHandle[handle]; ok {
		return lf.ID
	}
	return -1
}

// AddLocalFile registers an engine file handle with its absolute path and
// returns the assigned local index. Re-registering a handle is a no-op.
func (f *IndexFile) AddLocalFile(handle int32, path string) int32 {
	if lf, ok := f.localByHandle[handle]; ok {
		return lf.ID
	}
	lf := LocalFile{ID: int32(len(f.localByHandle)), Path: path}
	f.localByHandle[handle] = lf
	return lf.ID
}

// FlattenFileTable converts the handle-keyed local table into the ordered
// FileTable and drops the handle map. Called exactly once at finalization.
func (f *IndexFile) FlattenFileTable() {
	f.FileTable = f.FileTable[:0]
	for _, lf := range f.localByHandle {
		f.FileTable = append(f.FileTable, lf)
	}
	for i := 1; i < len(f.FileTable); i++ {
		for j := i; j > 0 && f.FileTable[j].ID < f.FileTable[j-1].ID; j-- {
			f.FileTable[j], f.FileTable[j-1] = f.FileTable[j-1], f.FileTable[j]
		}
	}
	f.localByHandle = nil
}
