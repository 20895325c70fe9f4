package session

import "github.com/pngnest/pngnest/generic"

func (d *Delivery) State() (DeliveryState, error) {
	cmd := stateCommand(nil).New(generic.NewVoid())
	select {
	case d.stateCommands <- cmd:
		return cmd.Wait()
	case <-d.ctx.Done():
		return DeliveryState{}, ErrDeliveryClosed
	}
}

func (d *Delivery) Start() {
	select {
	case d.startCommand <- struct{}{}:
	case <-d.ctx.Done():
	}
}

func (d *Delivery) Stop() {
	select {
	case d.stopCommand <- struct{}{}:
	case <-d.ctx.Done():
	}
}

func (d *Delivery) Running() <-chan struct{} {
	return d.running.Wait()
}

func (d *Delivery) Stopped() <-chan struct{} {
	return d.stopped.Wait()
}

func (d *Delivery) Complete() <-chan struct{} {
	return d.complete.Wait()
}

// IsComplete returns true if the "complete" flag was set. Useful to check after waiting on Stopped.
func (d *Delivery) IsComplete() bool {
	return d.complete.IsSet()
}

func (d *Delivery) Close() {
	d.ctxCancel()
	<-d.done
}

func (d *Delivery) Done() <-chan struct{} {
	return d.done
}
