// Package hotspot decides when a method is hot and compiles it in the
// background.
//
// A Dispatcher counts calls made through Invoke. Every Threshold calls an
// interpreted method is offered to a bounded pool of compile workers. The
// offer never blocks the caller: when every worker is busy the method keeps
// running interpreted and is offered again one threshold later.
//
// A method whose compile fails is disabled, so a broken method costs one
// failed task rather than one per threshold. Aborted and canceled tasks
// leave the method eligible.
package hotspot
