package bayes

// Class is a class of a message
type Class string

// recognized classes. ClassUnknown is not trainable, it is the distinguished
// outcome of a classification where the evidence doesn't discriminate.
const (
	ClassSpam    Class = "spam"
	ClassHam     Class = "ham"
	ClassUnknown Class = ""
)

// Valid checks if the class is one of the two trainable classes.
func (c Class) Valid() bool { return c == ClassSpam || c == ClassHam }

// String implements Stringer interface
func (c Class) String() string {
	if c == ClassUnknown {
		return "unknown"
	}
	return string(c)
}

// Message is a labeled raw text, the unit of training input.
type Message struct {
	Class Class
	Text  string
}

// Document is a group of tokens with a certain class
type Document struct {
	Class  Class
	Tokens []string
}

// NewDocument returns new document
func NewDocument(class Class, tokens ...string) Document {
	return Document{Class: class, Tokens: tokens}
}
