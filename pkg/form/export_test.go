package form

// WaitLookups blocks until every scheduled or in-flight availability lookup
// has finished or been cancelled.
func (c *Controller) WaitLookups() {
	c.lookups.Wait()
}
