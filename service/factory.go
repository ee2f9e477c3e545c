package service

// Factory builds empty directories and records bound to a key.
type Factory interface {
	NewDirectory() *Directory
	NewRecord(k Key) *Record
}

// Counters is the construction instrumentation of DefaultFactory.
type Counters struct {
	Directories int
	Records     int
}

// DefaultFactory counts what it builds. The zero value is ready to use.
type DefaultFactory struct {
	counters Counters
	// OnCreate, when set, is called with "directory" or "record" after
	// each construction.
	OnCreate func(kind string)
}

func (f *DefaultFactory) NewDirectory() *Directory {
	f.counters.Directories++
	f.notify("directory")
	return NewDirectory(f)
}

func (f *DefaultFactory) NewRecord(k Key) *Record {
	f.counters.Records++
	f.notify("record")
	return NewRecord(k)
}

func (f *DefaultFactory) Counters() Counters {
	return f.counters
}

func (f *DefaultFactory) notify(kind string) {
	if f.OnCreate != nil {
		f.OnCreate(kind)
	}
}
