// Package bayes implements a multinomial Naive Bayes classifier for short
// text messages with two classes, spam and ham.
//
// Training is a single pass: messages are tokenized with Tokenize, the
// distinct tokens form a Vocabulary, per-class occurrence counts form a
// FrequencyTable, and Estimate turns both into an immutable Model with
// Lidstone-smoothed token likelihoods. Train wires the whole pipeline
// together for callers holding raw labeled messages.
//
// A Model is never mutated after training and is safe for concurrent
// Classify calls. Classification accumulates log probabilities to avoid
// underflow on long messages; a message carrying no discriminating evidence
// yields a result with Certain set to false rather than an arbitrary pick.
package bayes
